package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks analytics computation and cache effectiveness.
type Metrics struct {
	CacheLookups       *prometheus.CounterVec
	ComputeDuration    *prometheus.HistogramVec
	SharedComputations prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteerhub_impact_cache_lookups_total",
			Help: "Analytics cache lookups by kind and result",
		}, []string{"kind", "result"}), // result: "hit", "miss", "error"
		ComputeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volunteerhub_impact_compute_duration_seconds",
			Help:    "Time spent computing analytics from the store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		SharedComputations: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_impact_shared_computations_total",
			Help: "Requests served by joining an in-flight computation",
		}),
	}
}

func (m *Metrics) IncrementCacheLookup(kind, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) ObserveCompute(kind string, start time.Time) {
	if m != nil {
		m.ComputeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncrementShared() {
	if m != nil {
		m.SharedComputations.Inc()
	}
}
