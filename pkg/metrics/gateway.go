package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records outbound calls to the store backend.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_backend_request_duration_seconds",
		Help:    "Duration of store backend requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_backend_requests_total",
		Help: "Store backend requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_backend_retries_total",
		Help: "Retried store backend requests.",
	}, []string{"endpoint"})
	reg.MustRegister(duration, requests, retries)
	return &GatewayMetrics{
		duration: duration,
		requests: requests,
		retries:  retries,
	}
}

// Observe records the duration and outcome of one request.
func (g *GatewayMetrics) Observe(endpoint, outcome string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	g.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
	g.requests.WithLabelValues(endpoint, normalizeLabel(outcome)).Inc()
}

// IncRetry counts one retry of endpoint.
func (g *GatewayMetrics) IncRetry(endpoint string) {
	if g == nil || g.retries == nil {
		return
	}
	g.retries.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
