package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for operation counters.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics provides observability for the batch registry and its event path.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	EventsPublished   *prometheus.CounterVec
	RelayBacklog      prometheus.Gauge
}

// New registers the batch metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_batch_operations_total",
			Help: "Registry operations by outcome",
		}, []string{"operation", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pharma_batch_operation_duration_seconds",
			Help:    "Duration of registry operations, including the per-batch transaction",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_events_published_total",
			Help: "Batch events accepted by each sink",
		}, []string{"sink"}),
		RelayBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pharma_outbox_relay_lag",
			Help: "Outbox entries still waiting for delivery after the last relay pass",
		}),
	}
}

// ObserveOperation records the outcome and duration of a registry operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, result string, start time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementEventsPublished counts one event accepted by sink.
func (m *Metrics) IncrementEventsPublished(sink string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink).Inc()
}

// SetRelayBacklog records how many outbox entries remain undelivered.
func (m *Metrics) SetRelayBacklog(n int) {
	if m == nil {
		return
	}
	m.RelayBacklog.Set(float64(n))
}
