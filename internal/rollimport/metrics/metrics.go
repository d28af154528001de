package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the roll import pipeline.
type Metrics struct {
	// Batches reaching a state, by state and rejection reason
	Batches *prometheus.CounterVec

	RowsStaged   prometheus.Counter
	RowsPromoted prometheus.Counter

	// Duration of a stage call from checksum to commit
	StageLatency prometheus.Histogram
}

// New creates the import metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parrainage_import_batches_total",
			Help: "Import batches by resulting state and reason",
		}, []string{"state", "reason"}),
		RowsStaged: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_import_rows_staged_total",
			Help: "Voter rows written to staging",
		}),
		RowsPromoted: f.NewCounter(prometheus.CounterOpts{
			Name: "parrainage_import_rows_promoted_total",
			Help: "Voter rows promoted to the live roll",
		}),
		StageLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "parrainage_import_stage_duration_seconds",
			Help:    "Duration of staging one uploaded roll",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) IncrementBatch(state, reason string) {
	if m != nil {
		m.Batches.WithLabelValues(state, reason).Inc()
	}
}

func (m *Metrics) AddStaged(n int) {
	if m != nil {
		m.RowsStaged.Add(float64(n))
	}
}

func (m *Metrics) AddPromoted(n int64) {
	if m != nil {
		m.RowsPromoted.Add(float64(n))
	}
}

func (m *Metrics) ObserveStageLatency(d time.Duration) {
	if m != nil {
		m.StageLatency.Observe(d.Seconds())
	}
}
