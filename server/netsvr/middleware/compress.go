package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 為回應壓縮的等級設定
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// encoder 是 zstd.Encoder 與 gzip.Writer 的共同方法
type encoder interface {
	io.Writer
	Reset(w io.Writer)
	Flush() error
	Close() error
}

// codec 管理一種 Content-Encoding 的 encoder pool
type codec struct {
	name string
	pool sync.Pool
	make func(w io.Writer) encoder
}

func (c *codec) get(w io.Writer) encoder {
	if v := c.pool.Get(); v != nil {
		enc := v.(encoder)
		enc.Reset(w)
		return enc
	}
	return c.make(w)
}

// put 收尾後放回 pool；discard 為真時把結尾 frame 丟掉（回應已改成不壓縮）。
func (c *codec) put(enc encoder, discard bool) {
	if discard {
		enc.Reset(io.Discard)
	}
	_ = enc.Close()
	c.pool.Put(enc)
}

// 依偏好排序：zstd 先於 gzip
var codecs = []*codec{
	{name: "zstd", make: func(w io.Writer) encoder {
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(DefaultCompressConfig.ZstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			panic(err)
		}
		return zw
	}},
	{name: "gzip", make: func(w io.Writer) encoder {
		gw, err := gzip.NewWriterLevel(w, DefaultCompressConfig.GzipLevel)
		if err != nil {
			panic(err)
		}
		return gw
	}},
}

// negotiate 從 Accept-Encoding 挑出第一個支援的編碼，q=0 視為拒絕。
func negotiate(accept string) *codec {
	if accept == "" {
		return nil
	}
	offered := make(map[string]bool)
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := strings.ReplaceAll(params, " ", "")
		if q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000" {
			continue
		}
		offered[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, c := range codecs {
		if offered[c.name] {
			return c
		}
	}
	return nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

// 已經壓縮過的內容型別（zstd 封裝的快照）不再二次壓縮
func isPrecompressed(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "application/octet-stream") ||
		strings.HasPrefix(ct, "application/zstd")
}

// 1xx / 204 / 304 沒有 body
func isNoBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type compressResponseWriter struct {
	http.ResponseWriter
	enc         encoder
	disabled    bool
	wroteHeader bool
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		// 先嗅探 Content-Type 再決定要不要壓縮
		if cw.Header().Get("Content-Type") == "" {
			cw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		cw.WriteHeader(http.StatusOK)
	}
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	return cw.enc.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	h := cw.Header()
	h.Del("Content-Length")
	if isNoBodyStatus(code) || isPrecompressed(h.Get("Content-Type")) {
		cw.disabled = true
		h.Del("Content-Encoding")
		h.Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Compression 依 Accept-Encoding 以 zstd 優先、gzip 次之壓縮回應。
// HEAD、WebSocket、已帶 Content-Encoding 的回應直接放行。
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}
		c := negotiate(r.Header.Get("Accept-Encoding"))
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", c.name)
		w.Header().Add("Vary", "Accept-Encoding")
		cw := &compressResponseWriter{ResponseWriter: w, enc: c.get(w)}
		defer func() { c.put(cw.enc, cw.disabled) }()

		next.ServeHTTP(cw, r)
	})
}
