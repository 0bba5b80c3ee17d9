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

package netsvr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultAddr string = ":5808"

// Option 調整 ChiAdapter 底下的 http.Server。
type Option func(*http.Server)

// WithWriteTimeout 覆寫回應寫出期限；大量 /v1/sim 需要的時間比預設長時使用。
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

// WithReadTimeout 覆寫讀取整個請求（含 body）的期限。
func WithReadTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.ReadTimeout = d
		}
	}
}

// ChiAdapter 以 chi 實作 NetSvr。Group 產生的子 adapter 沒有 server，只能註冊路由。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
}

// NewChiServer 建立 ChiAdapter；addr 為空時監聽 :5808。
// 預設 WriteTimeout 60 秒，留給 /v1/sim 的大量模擬。
func NewChiServer(addr string, opts ...Option) *ChiAdapter {
	if addr == "" {
		addr = defaultAddr
	}
	cr := chi.NewRouter()
	srv := &http.Server{
		Addr:              addr,
		Handler:           cr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return &ChiAdapter{router: cr, server: srv}
}

// Ready 檢查 adapter 是否由 NewChiServer 建立（子 adapter 或零值都不是）。
func (c *ChiAdapter) Ready() bool {
	return c != nil && c.router != nil && c.server != nil &&
		strings.Contains(c.server.Addr, ":") && c.server.Handler == c.router
}

func (c *ChiAdapter) Run() error {
	if err := c.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) { c.router.Use(mw) }

func (c *ChiAdapter) Get(path string, h http.HandlerFunc)    { c.router.Get(path, h) }
func (c *ChiAdapter) Post(path string, h http.HandlerFunc)   { c.router.Post(path, h) }
func (c *ChiAdapter) Put(path string, h http.HandlerFunc)    { c.router.Put(path, h) }
func (c *ChiAdapter) Delete(path string, h http.HandlerFunc) { c.router.Delete(path, h) }

func (c *ChiAdapter) Group(path string, fn func(NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

func (c *ChiAdapter) Address() string {
	if c.server == nil {
		return ""
	}
	return c.server.Addr
}

func (c *ChiAdapter) Handler() http.Handler {
	return c.router
}

// Param 取出路由參數（/tables/{table} 的 table）。
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
