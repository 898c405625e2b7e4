package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the workshop sweeper.
type Metrics struct {
	SweepsTotal       prometheus.Counter
	AutoAdvancesTotal prometheus.Counter
	AutoStartsTotal   prometheus.Counter
	CompletionsTotal  prometheus.Counter
}

// NewMetrics creates and registers sweeper metrics on the given registry.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		SweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "sweeper",
			Name:      "sweeps_total",
			Help:      "Total sweep passes over active workshops.",
		}),
		AutoAdvancesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "sweeper",
			Name:      "auto_advances_total",
			Help:      "Phases advanced automatically after timer expiry.",
		}),
		AutoStartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "sweeper",
			Name:      "auto_starts_total",
			Help:      "Workshops started automatically at their scheduled time.",
		}),
		CompletionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "sweeper",
			Name:      "completions_total",
			Help:      "Workshops completed after exhausting their plan.",
		}),
	}

	reg.MustRegister(m.SweepsTotal, m.AutoAdvancesTotal, m.AutoStartsTotal, m.CompletionsTotal)
	return m
}
