package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the event lifecycle module.
// Tracks transitions, registrations, check-in outcomes and certificate issuance.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	Registrations      *prometheus.CounterVec
	CheckIns           *prometheus.CounterVec
	CheckInDistance    prometheus.Histogram
	CertificatesIssued prometheus.Counter
	TxDuration         *prometheus.HistogramVec
}

// New registers the event metrics with reg. Passing a fresh registry keeps
// tests isolated from the process-wide default.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteerhub_event_transitions_total",
			Help: "Event status transitions by target status",
		}, []string{"status"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteerhub_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}), // outcome: "created", "not_open", "capacity", "duplicate", "cancelled"
		CheckIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteerhub_check_ins_total",
			Help: "Check-in attempts by method and outcome",
		}, []string{"method", "outcome"}),
		CheckInDistance: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "volunteerhub_check_in_distance_meters",
			Help:    "Distance between the volunteer and the venue on self check-in",
			Buckets: []float64{10, 25, 50, 100, 150, 200, 300, 500, 1000, 5000},
		}),
		CertificatesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_certificate_batches_total",
			Help: "Events whose certificates were issued",
		}),
		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volunteerhub_event_tx_duration_seconds",
			Help:    "Duration of event transactions by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCheckIn(method, outcome string) {
	if m != nil {
		m.CheckIns.WithLabelValues(method, outcome).Inc()
	}
}

func (m *Metrics) ObserveCheckInDistance(meters float64) {
	if m != nil {
		m.CheckInDistance.Observe(meters)
	}
}

func (m *Metrics) IncrementCertificatesIssued() {
	if m != nil {
		m.CertificatesIssued.Inc()
	}
}

// ObserveTx records the duration of a transactional operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTx(operation string, start time.Time) {
	if m != nil {
		m.TxDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
