// Package metrics exposes Prometheus instruments for the kanban server.
// Each Metrics value owns its registry so tests can create as many as they need.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kanban"

// Metrics groups the server's instruments.
type Metrics struct {
	Registry *prometheus.Registry

	// Connections is the number of open websocket connections.
	Connections prometheus.Gauge

	// EventsRelayed counts realtime events delivered to other connections,
	// labelled by event type and source (local or redis).
	EventsRelayed *prometheus.CounterVec

	// EventsRejected counts inbound websocket messages that were dropped.
	EventsRejected prometheus.Counter

	// CardMutations counts successful CRUD writes, labelled by operation.
	CardMutations *prometheus.CounterVec

	// PersistErrors counts failed Redis write-throughs.
	PersistErrors prometheus.Counter
}

// New creates and registers every instrument, plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections.",
		}),
		EventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Realtime events relayed to board rooms.",
		}, []string{"type", "source"}),
		EventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Inbound websocket messages dropped as invalid.",
		}),
		CardMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_mutations_total",
			Help:      "Successful card writes through the REST API.",
		}, []string{"op"}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed Redis write-throughs.",
		}),
	}

	reg.MustRegister(
		m.Connections,
		m.EventsRelayed,
		m.EventsRejected,
		m.CardMutations,
		m.PersistErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
