package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds the HTTP and realtime metrics plus the shared
// registry the domain packages register their own metrics on. Uses a custom
// registry, no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// HTTP gateway metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge

	// Realtime metrics.
	WSConnections prometheus.Gauge
	WSRoomJoins   *prometheus.CounterVec
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainstormx",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brainstormx",
			Name:      "active_requests",
			Help:      "Number of currently active HTTP requests.",
		}),

		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brainstormx",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Currently connected WebSocket clients.",
		}),

		WSRoomJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainstormx",
			Subsystem: "ws",
			Name:      "room_joins_total",
			Help:      "Total room joins by room.",
		}, []string{"room"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
		m.WSConnections,
		m.WSRoomJoins,
	)

	return m
}
