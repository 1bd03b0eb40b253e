package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CheckInFailures prometheus.Counter
	CheckInLockouts prometheus.Counter
	CheckInBlocked  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckInFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_ratelimit_check_in_failures_total",
			Help: "Failed self check-in attempts recorded for lockout",
		}),
		CheckInLockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_ratelimit_check_in_lockouts_total",
			Help: "Lockouts applied after repeated failed self check-ins",
		}),
		CheckInBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_ratelimit_check_in_blocked_total",
			Help: "Self check-ins rejected because the caller was locked out",
		}),
	}
}

func (m *Metrics) IncrementFailures() {
	if m != nil {
		m.CheckInFailures.Inc()
	}
}

func (m *Metrics) IncrementLockouts() {
	if m != nil {
		m.CheckInLockouts.Inc()
	}
}

func (m *Metrics) IncrementBlocked() {
	if m != nil {
		m.CheckInBlocked.Inc()
	}
}
