package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's counters on a private registry so tests can
// spin up multiple servers without duplicate registration.
type Metrics struct {
	Registry *prometheus.Registry

	RoomCompletions prometheus.Counter
	Measurements    prometheus.Counter
	BellViolations  prometheus.Counter
	HintsShown      prometheus.Counter
	SyncFailures    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RoomCompletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumescape_rooms_completed_total",
			Help: "Rooms completed across all players.",
		}),
		Measurements: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumescape_measurements_total",
			Help: "Simulator measurement requests served.",
		}),
		BellViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumescape_bell_violations_total",
			Help: "Bell test runs that violated the classical bound.",
		}),
		HintsShown: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumescape_hints_shown_total",
			Help: "Hints surfaced to players.",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumescape_sync_failures_total",
			Help: "Failed remote session service calls.",
		}),
	}
}
