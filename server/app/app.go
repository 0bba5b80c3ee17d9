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

// Package app 提供應用程式生命週期管理（App），負責統一啟動與關閉多個 Component。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultShutdownTimeout 為優雅關閉的預設期限
const DefaultShutdownTimeout = 5 * time.Second

// App 同時跑所有 Component，收到 SIGINT/SIGTERM 或任一 Component 結束時，依註冊順序逐一 Shutdown。
// weightlab server 註冊的順序是 HTTP 先、即時表 runtime 後，確保不再有請求時才關表。
type App struct {
	comps   []Component
	log     *slog.Logger
	timeout time.Duration
}

func New() *App {
	return &App{log: slog.New(slog.DiscardHandler), timeout: DefaultShutdownTimeout}
}

// WithLogger 設定關閉過程的 logger；nil 時維持丟棄。
func (a *App) WithLogger(log *slog.Logger) *App {
	if log != nil {
		a.log = log
	}
	return a
}

// WithShutdownTimeout 設定優雅關閉的期限（<= 0 時忽略）。
func (a *App) WithShutdownTimeout(td time.Duration) *App {
	if td > 0 {
		a.timeout = td
	}
	return a
}

func NewWith(comps ...Component) *App {
	a := New()
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// Run 阻塞到收到終止信號（回傳 nil）或第一個 Component 的 Run 返回（回傳它的錯誤）。
func (a *App) Run() error {
	done := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func() { done <- c.Run() }()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var err error
	select {
	case sig := <-quit:
		a.log.Info("signal received, shutting down", slog.String("signal", sig.String()))
	case err = <-done:
		if err != nil {
			a.log.Error("component stopped", slog.Any("err", err))
		}
	}
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	for i, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Warn("component shutdown failed", slog.Int("component", i), slog.Any("err", err))
		}
	}
}
