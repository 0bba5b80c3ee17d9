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

package api

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/weightlab"
	v1 "github.com/zintix-labs/weightlab/server/api/v1"
	"github.com/zintix-labs/weightlab/server/netsvr"
	"github.com/zintix-labs/weightlab/server/netsvr/middleware"
	"github.com/zintix-labs/weightlab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與全部路由，回傳即時表的 runtime 供呼叫端管理生命週期。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) (*weightlab.TableRuntime, error) {
	registerMiddleware(svr, sCfg)   // 1. 註冊 middleware
	registerIndex(svr, sCfg)        // 2. 註冊主頁與 /metrics
	return registerV1API(svr, sCfg) // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(sCfg.Metrics.Middleware)
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.Compression)
}

// 註冊主頁：列出可用的表與路由
func registerIndex(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	type index struct {
		Service string   `json:"service"`
		Tables  []string `json:"tables"`
		Routes  []string `json:"routes"`
	}
	body := index{
		Service: "weightlab",
		Tables:  sCfg.Lab.Tables(),
		Routes: []string{
			"GET    /v1/tables",
			"GET    /v1/tables/{table}",
			"GET    /v1/tables/{table}/stats",
			"POST   /v1/tables/{table}/draw?n=",
			"POST   /v1/tables/{table}/take",
			"PUT    /v1/tables/{table}/weights",
			"POST   /v1/tables/{table}/items",
			"DELETE /v1/tables/{table}/items/{item}",
			"POST   /v1/tables/{table}/reset",
			"GET    /v1/tables/{table}/snapshot",
			"PUT    /v1/tables/{table}/snapshot",
			"POST   /v1/sim",
			"POST   /v1/simbycfg",
			"GET    /metrics",
		},
	}
	svr.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	svr.Get("/metrics", sCfg.Metrics.Handler().ServeHTTP)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) (*weightlab.TableRuntime, error) {
	t, err := v1.NewTableHandler(sCfg)
	if err != nil {
		return nil, err
	}
	s, err := v1.NewSimHandler(sCfg)
	if err != nil {
		return nil, err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/tables", t.List)
		vOne.Group("/tables/{table}", func(tb netsvr.NetRouter) {
			tb.Get("/", t.Get)
			tb.Get("/stats", t.Stat)
			tb.Get("/draw", t.Draw)
			tb.Post("/draw", t.Draw)
			tb.Post("/take", t.Take)
			tb.Put("/weights", t.Weights)
			tb.Post("/items", t.AddItem)
			tb.Delete("/items/{item}", t.RemoveItem)
			tb.Post("/reset", t.Reset)
			tb.Get("/snapshot", t.Snapshot)
			tb.Put("/snapshot", t.Restore)
		})

		vOne.Post("/sim", s.Sim)
		vOne.Post("/simbycfg", s.SimByCfg)
	})
	return t.Runtime(), nil
}
