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

package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/weightlab/errs"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

func (m LogMode) String() string {
	switch m {
	case ModeDev:
		return "dev"
	case ModeProd:
		return "prod"
	case ModeSilence:
		return "silence"
	default:
		return "unknown"
	}
}

// ParseLogMode 解析命令列的 -log-mode 參數（dev / prod / silence）。
func ParseLogMode(s string) (LogMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev":
		return ModeDev, nil
	case "prod":
		return ModeProd, nil
	case "silence", "silent":
		return ModeSilence, nil
	default:
		return ModeDev, errs.NewWarn("unknown log mode: " + s)
	}
}

// NewDefaultLogger 依 LogMode 建立同步 logger，CLI 與測試使用。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

// NewDefaultAsyncLogger 依 LogMode 建立非同步 logger，拿不到 *AsyncHandler，程式結束時未寫出的紀錄會遺失。
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(buildHandler(mode), 8192))
}

// NewAsync 與 NewDefaultAsyncLogger 相同，但回傳 *AsyncHandler 讓呼叫端在結束前 Close。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

// AsyncHandler 把紀錄丟進有界佇列，由背景 goroutine 交給 next 寫出，抽樣請求不等 I/O。
// 佇列滿或 Close 之後的紀錄直接丟棄並計數。
// WithAttrs / WithGroup 產生的 handler 共用同一個佇列。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type entry struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

type queue struct {
	mu      sync.RWMutex // 保護 closed 與 close(ch)
	closed  bool
	ch      chan entry
	done    chan struct{}
	dropped atomic.Uint64
}

// NewAsyncHandler 以容量 buf（<= 0 時 1024）的佇列包住 next；next 為 nil 時用 dev handler。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{ch: make(chan entry, buf), done: make(chan struct{})}
	go q.drain()
	return &AsyncHandler{next: next, q: q}
}

func (q *queue) drain() {
	defer close(q.done)
	for e := range q.ch {
		_ = e.h.Handle(e.ctx, e.rec)
	}
}

func (q *queue) push(e entry) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- e:
	default:
		q.dropped.Add(1)
	}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil && h.next != nil
}

// Dropped 回傳因佇列滿或已關閉而丟棄的筆數。
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止收件並等佇列內的紀錄寫完，可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.mu.Lock()
	if !h.q.closed {
		h.q.closed = true
		close(h.q.ch)
	}
	h.q.mu.Unlock()
	<-h.q.done
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle 不回傳錯誤：slog.Logger 本來就忽略它，寫出失敗由 next 自行處理。
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	// Record 跨 goroutine 前必須 Clone
	h.q.push(entry{ctx: ctx, rec: r.Clone(), h: h.next})
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}

func buildHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		// JSON 給收集器，等級 info
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.DiscardHandler
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
