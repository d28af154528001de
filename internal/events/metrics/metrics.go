package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for event relay and consumption.
type Metrics struct {
	Relayed     prometheus.Counter
	RelayErrors prometheus.Counter

	// Events received from Kafka by type
	Consumed *prometheus.CounterVec

	// Outbox rows waiting after the last relay pass
	OutboxBacklog prometheus.Gauge
}

// New creates the event metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Relayed: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_events_relayed_total",
			Help: "Outbox events published to Kafka",
		}),
		RelayErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_events_relay_errors_total",
			Help: "Relay passes that failed to publish",
		}),
		Consumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parrainage_events_consumed_total",
			Help: "Events received from Kafka by type",
		}, []string{"type"}),
		OutboxBacklog: f.NewGauge(prometheus.GaugeOpts{
			Name: "parrainage_events_outbox_backlog",
			Help: "Unpublished outbox rows fetched by the last relay pass",
		}),
	}
}

func (m *Metrics) AddRelayed(n int) {
	if m != nil {
		m.Relayed.Add(float64(n))
	}
}

func (m *Metrics) IncrementRelayError() {
	if m != nil {
		m.RelayErrors.Inc()
	}
}

func (m *Metrics) IncrementConsumed(eventType string) {
	if m != nil {
		m.Consumed.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) SetBacklog(n int) {
	if m != nil {
		m.OutboxBacklog.Set(float64(n))
	}
}
