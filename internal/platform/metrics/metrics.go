package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	ClientRequests  *prometheus.CounterVec
}

// New registers the HTTP metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pharma_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ClientRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_http_client_requests_total",
			Help: "HTTP requests by client class derived from the User-Agent",
		}, []string{"class"}),
	}
}

// ObserveRequest records one request latency in seconds.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// IncrementClientRequests counts one request from a client class.
func (m *Metrics) IncrementClientRequests(class string) {
	if m == nil {
		return
	}
	m.ClientRequests.WithLabelValues(class).Inc()
}
