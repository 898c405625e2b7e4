package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for phase transitions. All metrics use
// the brainstormx_orchestrator_ namespace.
type Metrics struct {
	TransitionsTotal  *prometheus.CounterVec
	PhasesSkipped     *prometheus.CounterVec
	ProviderDuration  *prometheus.HistogramVec
	ActiveWorkshops   prometheus.Gauge
	ConflictsTotal    prometheus.Counter
	BroadcastsEmitted *prometheus.CounterVec
}

// NewMetrics creates and registers orchestrator metrics on the given
// registry. Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "orchestrator",
			Name:      "transitions_total",
			Help:      "Phase transitions by task type and outcome.",
		}, []string{"task_type", "outcome"}),

		PhasesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "orchestrator",
			Name:      "phases_skipped_total",
			Help:      "Plan nodes skipped during automatic advancement by task type.",
		}, []string{"task_type"}),

		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainstormx",
			Subsystem: "orchestrator",
			Name:      "provider_duration_seconds",
			Help:      "Content provider call duration in seconds by task type.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"task_type"}),

		ActiveWorkshops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brainstormx",
			Subsystem: "orchestrator",
			Name:      "active_workshops",
			Help:      "Workshops currently in progress or paused.",
		}),

		ConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "orchestrator",
			Name:      "conflicts_total",
			Help:      "Phase transitions rejected because of concurrent state changes.",
		}),

		BroadcastsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "orchestrator",
			Name:      "broadcasts_emitted_total",
			Help:      "Room broadcasts emitted by event name.",
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.TransitionsTotal,
		m.PhasesSkipped,
		m.ProviderDuration,
		m.ActiveWorkshops,
		m.ConflictsTotal,
		m.BroadcastsEmitted,
	)
	return m
}
