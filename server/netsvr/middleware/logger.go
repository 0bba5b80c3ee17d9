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

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Recorder 記下 handler 寫出的狀態碼與 body 位元組數，access log 與 metrics 共用。
type Recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func NewRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *Recorder) Status() int { return r.status }
func (r *Recorder) Bytes() int  { return r.bytes }

func (r *Recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *Recorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *Recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLog 每個請求寫一筆 "http.access"。
// 路由帶 {table} 時附上表名；成功的 /metrics 抓取降為 debug，免得洗版。
// log 為 nil 時不做任何事。
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := make([]slog.Attr, 0, 8)
			attrs = append(attrs,
				slog.Int("status", rec.status),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("latency", time.Since(start)),
				slog.Int("bytes", rec.bytes),
			)
			if id := ReqID(r); id != "" {
				attrs = append(attrs, slog.String("req_id", id))
			}
			route := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
				if route != "" {
					attrs = append(attrs, slog.String("route", route))
				}
				if t := rc.URLParam("table"); t != "" {
					attrs = append(attrs, slog.String("table", t))
				}
			}
			log.LogAttrs(r.Context(), accessLevel(rec.status, route), "http.access", attrs...)
		})
	}
}

func accessLevel(status int, route string) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case route == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
