package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	recovery     *prometheus.CounterVec
}

// NewMetrics registers the HTTP RED collectors, the recovery flow counter
// and the Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docpilot",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docpilot",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		recovery: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docpilot",
			Name:      "password_recovery_steps_total",
			Help:      "Password recovery steps by outcome.",
		}, []string{"step", "outcome"}),
	}
}

// ObserveRecovery counts one recovery step outcome.
func (m *Metrics) ObserveRecovery(step, outcome string) {
	m.recovery.WithLabelValues(step, outcome).Inc()
}

// Middleware records RED metrics labelled with the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		m.httpDuration.WithLabelValues(path, r.Method, code).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(path, r.Method, code).Inc()
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
