package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the period lifecycle.
type Metrics struct {
	// Transitions by target state
	Transitions *prometheus.CounterVec

	// Sponsorships rejected by a close or terminate cascade
	CascadeRejected prometheus.Counter

	// Periods closed by the expiry sweep
	SweptExpired prometheus.Counter
}

// New creates the period metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parrainage_period_transitions_total",
			Help: "Period state transitions by target state",
		}, []string{"to"}),
		CascadeRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_period_cascade_rejected_total",
			Help: "PENDING sponsorships rejected when their period closed",
		}),
		SweptExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_period_swept_expired_total",
			Help: "OPEN periods closed because their end passed",
		}),
	}
}

func (m *Metrics) IncrementTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) AddCascadeRejected(n int64) {
	if m != nil && n > 0 {
		m.CascadeRejected.Add(float64(n))
	}
}

func (m *Metrics) IncrementSwept() {
	if m != nil {
		m.SweptExpired.Inc()
	}
}
