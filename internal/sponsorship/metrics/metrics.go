package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sponsorship ledger.
type Metrics struct {
	// Ledger writes by operation and outcome
	Operations *prometheus.CounterVec

	// Verification code collisions that forced a retry
	CodeRetries prometheus.Counter

	CreateLatency prometheus.Histogram
}

// New creates the sponsorship metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parrainage_sponsorship_operations_total",
			Help: "Sponsorship ledger operations by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: "ok" or an error code
		CodeRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_sponsorship_code_retries_total",
			Help: "Verification code collisions retried with a fresh code",
		}),
		CreateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "parrainage_sponsorship_create_duration_seconds",
			Help:    "Duration of sponsorship creation including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) IncrementCodeRetry() {
	if m != nil {
		m.CodeRetries.Inc()
	}
}

func (m *Metrics) ObserveCreateLatency(d time.Duration) {
	if m != nil {
		m.CreateLatency.Observe(d.Seconds())
	}
}
