package middleware

import (
	"net/http"
	"strings"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader 回寫給呼叫端的 request id，方便對照 access log。
const RequestIDHeader = "X-Request-Id"

// RequestID 沿用 chi 的 id 產生方式（沿用呼叫端帶入的 X-Request-Id），並回寫到回應 header。
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := ReqID(r); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	}))
}

func ReqID(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

// ReqSeq 只取 id 最後的流水號（host/prefix-000123 -> 000123），log 比較短。
func ReqSeq(r *http.Request) string {
	id := ReqID(r)
	if i := strings.LastIndexByte(id, '-'); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}
