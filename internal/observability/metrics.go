package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestsTotal counts handled HTTP requests by method, route pattern and
// status.
var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "movieauth_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"method", "path", "status"},
)

// RequestDuration measures request latency by method and route pattern.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "movieauth_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

// NewRegistry builds a registry with the service metrics plus the standard
// Go and process collectors, and returns it with its /metrics handler.
func NewRegistry() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		RequestsTotal,
		RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
