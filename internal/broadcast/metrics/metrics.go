package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the broadcast log and its Kafka fan-out.
type Metrics struct {
	Created   prometheus.Counter
	Deleted   prometheus.Counter
	Published *prometheus.CounterVec
	Pages     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_broadcasts_created_total",
			Help: "Broadcast messages stored",
		}),
		Deleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_broadcasts_deleted_total",
			Help: "Broadcast messages removed",
		}),
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteerhub_broadcasts_published_total",
			Help: "Broadcast publications to the notification topic by outcome",
		}, []string{"outcome"}), // outcome: "ok", "error", "skipped"
		Pages: factory.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_broadcast_pages_fetched_total",
			Help: "Pages read from the broadcast store while listing",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

func (m *Metrics) IncrementDeleted() {
	if m != nil {
		m.Deleted.Inc()
	}
}

func (m *Metrics) IncrementPublished(outcome string) {
	if m != nil {
		m.Published.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementPages() {
	if m != nil {
		m.Pages.Inc()
	}
}
