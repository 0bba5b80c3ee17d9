// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/server/api"
	"github.com/zintix-labs/weightlab/server/app"
	"github.com/zintix-labs/weightlab/server/netsvr"
	"github.com/zintix-labs/weightlab/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證輸入的 SvrConfig（包含必要依賴，例如 logger 與 Lab）。
//  2. 建立 HTTP server（netsvr）。
//  3. 註冊路由與 middleware（api.RegisterRoutes），並取得即時表的 runtime。
//  4. 啟動 app.Run() 並回傳停止原因。
//
// 注意：
//   - Run 不綁定任何「檔案路徑」或「環境變數」策略；所有依賴都應透過 SvrConfig 明確注入。
//   - 若你要自訂 server 的組裝/路由/生命週期，建議在你的專案內以 weightlab.Lab 為核心自行組裝。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr, netsvr.WithWriteTimeout(sCfg.WriteTimeout)))
}

// RunWithSvr 與 Run() 相同，差別在於允許呼叫端注入自訂的 NetSvr
// （例如自行包裝的 adapter、額外的 server option、或把 API 掛載到既有服務中）。
//
// 重要行為與合約（contract）：
//   - 會先做 SvrConfig 的基本驗證。若驗證失敗，會額外把錯誤輸出到 stderr。
//   - svr 參數必須非 nil，且若是 ChiAdapter 會要求 Ready() 為 true。
//   - 即時表的 runtime 以 app.Component 的形式一併納入生命週期：收到終止信號時先停 HTTP，再關閉 runtime。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	// 註冊 Api
	rt, err := api.RegisterRoutes(svr, sCfg)
	if err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	// 運行
	a := app.NewWith(svr, app.Hold(rt.Close)).WithLogger(sCfg.Log)
	sCfg.Log.Info("[weightlab] listening", slog.String("addr", sCfg.Addr), slog.Any("tables", rt.Names()))
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}
