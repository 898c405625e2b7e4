package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/broadcomms/brainstormx/internal/orchestrator"
	"github.com/broadcomms/brainstormx/internal/scheduler"
)

func TestMetricsCollectorCreated(t *testing.T) {
	m := NewMetricsCollector()
	if m == nil {
		t.Fatal("expected non-nil MetricsCollector")
	}
	if m.Registry == nil {
		t.Fatal("expected non-nil Registry")
	}

	// Vec metrics only appear in Gather after first use.
	m.HTTPRequestsTotal.WithLabelValues("GET", "/workshops", "200").Inc()
	m.WSRoomJoins.WithLabelValues("workshop_room_1").Inc()
	m.WSConnections.Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, expected := range []string{
		"brainstormx_http_requests_total",
		"brainstormx_ws_room_joins_total",
		"brainstormx_ws_connections",
		"brainstormx_active_requests",
	} {
		if !names[expected] {
			t.Errorf("metric %q not found in registry", expected)
		}
	}
}

func TestDomainMetricsShareRegistry(t *testing.T) {
	m := NewMetricsCollector()
	om := orchestrator.NewMetrics(m.Registry)
	sm := scheduler.NewMetrics(m.Registry)
	if om == nil || sm == nil {
		t.Fatal("domain metrics not created")
	}

	om.TransitionsTotal.WithLabelValues("brainstorming", "activated").Inc()
	om.TransitionsTotal.WithLabelValues("brainstorming", "activated").Inc()
	sm.SweepsTotal.Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}

	var transitions *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "brainstormx_orchestrator_transitions_total" {
			transitions = f
		}
	}
	if transitions == nil {
		t.Fatal("orchestrator transitions metric not gathered")
	}
	if len(transitions.Metric) != 1 {
		t.Fatalf("expected one label combination, got %d", len(transitions.Metric))
	}
	got := transitions.Metric[0]
	if got.GetCounter().GetValue() != 2 {
		t.Fatalf("counter value = %v, want 2", got.GetCounter().GetValue())
	}
	labels := labelMap(got.GetLabel())
	if labels["task_type"] != "brainstorming" || labels["outcome"] != "activated" {
		t.Fatalf("labels = %v", labels)
	}
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.GetName()] = p.GetValue()
	}
	return out
}

func TestHealthCheckerAggregation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHealthChecker(logger)

	if got := h.CheckReady(context.Background()); got.Status != "ok" {
		t.Fatalf("empty checker status = %q, want ok", got.Status)
	}

	h.AddCheck("db", func(ctx context.Context) error { return nil })
	h.AddCheck("nats", func(ctx context.Context) error { return errors.New("connection refused") })

	status := h.CheckReady(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", status.Status)
	}
	if status.Checks["db"].Status != "ok" {
		t.Fatalf("db check = %+v", status.Checks["db"])
	}
	if status.Checks["nats"].Status != "fail" || status.Checks["nats"].Message == "" {
		t.Fatalf("nats check = %+v", status.Checks["nats"])
	}

	if live := h.CheckHealth(); live.Status != "ok" {
		t.Fatalf("liveness = %q, want ok", live.Status)
	}
}

func TestObservabilityNilConfigDisabled(t *testing.T) {
	obs, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if obs != nil {
		t.Fatal("nil config must disable observability entirely")
	}
	obs.Shutdown(context.Background()) // Nil-safe.
}
