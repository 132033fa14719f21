package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsNamespace = "qprep"
	httpSubsystem    = "http"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: httpSubsystem,
		Name:      "requests_total",
		Help:      "Total HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: httpSubsystem,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: httpSubsystem,
		Name:      "inflight_requests",
		Help:      "HTTP requests currently being served.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, httpInflight)
}

// Metrics 每個請求量測一次：計數、延遲、在途數。
//
// route label 取 chi 的 RoutePattern（要在 next 返回後才拿得到），
// 路徑參數會以 pattern 形式聚合（例如 /v1/catalog/{id}），
// 避免高基數 label；拿不到 pattern 時退回原始 path。
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		rw := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		route := routePattern(r)
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// MetricsHandler 暴露 Prometheus text format 的 /metrics endpoint。
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
