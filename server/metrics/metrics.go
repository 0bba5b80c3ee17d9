// Package metrics 以 Prometheus 暴露伺服器與即時表的運行指標。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zintix-labs/weightlab/server/netsvr/middleware"
)

const namespace = "weightlab"

type Metrics struct {
	reg *prometheus.Registry

	requests  *prometheus.CounterVec   // method, route, status
	latency   *prometheus.HistogramVec // route
	draws     *prometheus.CounterVec   // table
	mutations *prometheus.CounterVec   // table, op
	simDraws  prometheus.Counter
}

func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// NewMetrics 建立指標並註冊到 reg。
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "http requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "http request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_draws_total",
			Help:      "weighted draws served per live table",
		}, []string{"table"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_mutations_total",
			Help:      "successful table mutations by operation",
		}, []string{"table", "op"}),
		simDraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sim_draws_total",
			Help:      "draws executed by /v1/sim requests",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.draws, m.mutations, m.simDraws)
	return m
}

// Registry 回傳底層 registry（測試或外部再註冊 collector 用）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler 是 /metrics 的 http.Handler；壓縮交給 middleware.Compression。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg, DisableCompression: true})
}

func (m *Metrics) Draw(table string, n int) {
	m.draws.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) Mutation(table, op string) {
	m.mutations.WithLabelValues(table, op).Inc()
}

func (m *Metrics) SimDraws(n int) {
	m.simDraws.Add(float64(n))
}

// Middleware 以 chi 的 route pattern 當 label，避免表名或項目名造成高基數。
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewRecorder(w)
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
