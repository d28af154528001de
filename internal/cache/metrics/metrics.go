package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results.
const (
	ResultLocal       = "local"
	ResultFresh       = "fresh"
	ResultStale       = "stale"
	ResultComputed    = "computed"
	ResultBypass      = "bypass"
	ResultUnavailable = "unavailable"
)

// Metrics provides observability for the cache coordinator.
type Metrics struct {
	Lookups *prometheus.CounterVec

	// Time spent waiting for another holder's computation
	LockWait prometheus.Histogram

	Invalidations *prometheus.CounterVec

	// 1 while the shared store breaker is open
	BreakerOpen prometheus.Gauge
}

// New creates the cache metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parrainage_cache_lookups_total",
			Help: "Cache lookups by how the value was served",
		}, []string{"result"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "parrainage_cache_lock_wait_seconds",
			Help:    "Time non-holders waited for a fresh value",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
		}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parrainage_cache_invalidations_total",
			Help: "Cache invalidations by origin",
		}, []string{"origin"}), // origin: "local" or "remote"
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "parrainage_cache_breaker_open",
			Help: "Whether the shared cache store circuit is open",
		}),
	}
}

func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.Lookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWait.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementInvalidation(origin string) {
	if m != nil {
		m.Invalidations.WithLabelValues(origin).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
