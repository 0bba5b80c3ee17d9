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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/catalog"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/sampler"
)

// sentinels 依序比對，先命中先用；context 錯誤排最前面，被 wrap 也能命中。
var sentinels = []struct {
	err    error
	status int
}{
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
	{context.Canceled, http.StatusRequestTimeout},
	{weightlab.ErrTableNotFound, http.StatusNotFound},
	{catalog.ErrNoTable, http.StatusNotFound},
	{sampler.ErrNotFound, http.StatusNotFound},
	{weightlab.ErrRuntimeClosed, http.StatusServiceUnavailable},
	{weightlab.ErrTableEmpty, http.StatusConflict},
}

// StatusCode 將錯誤映射成 HTTP status code。
// 沒命中 sentinel 時看錯誤分級：Warn 為 400，其餘（含非 *errs.E）為 500。
func StatusCode(err error) int {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	if errs.Level(err) == errs.Warn {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// body 是錯誤回應的 JSON 形狀
type body struct {
	Status int    `json:"status"`
	Level  string `json:"level,omitempty"`
	Error  string `json:"error"`
}

// Errs 寫回 JSON 錯誤；err 為 nil 時什麼都不寫。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body{Status: status, Level: errs.ErrLv(errs.Level(err)), Error: err.Error()})
}

// Log 只記錄伺服器端與生命週期問題，一般 4xx 是呼叫端的事。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	switch status := StatusCode(err); {
	case status >= 500 && status != http.StatusServiceUnavailable:
		log.Error(msg, slog.Int("status", status), slog.Any("err", err))
	case status == http.StatusRequestTimeout, status == http.StatusConflict,
		status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		log.Warn(msg, slog.Int("status", status), slog.Any("err", err))
	}
}
