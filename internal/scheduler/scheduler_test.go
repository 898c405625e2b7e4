package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/broadcomms/brainstormx/internal/orchestrator"
	"github.com/broadcomms/brainstormx/internal/plan"
	"github.com/broadcomms/brainstormx/internal/provider"
	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/storage/memory"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

type fixedProvider struct {
	taskType string
	tasks    workshop.TaskStore
	duration int
}

func (p *fixedProvider) TaskType() string { return p.taskType }

func (p *fixedProvider) Generate(ctx context.Context, workshopID int64, _ *int64, _ string) (provider.Payload, error) {
	task := &workshop.Task{
		WorkshopID: workshopID,
		TaskType:   p.taskType,
		Title:      p.taskType,
		Duration:   p.duration,
		Status:     workshop.TaskPending,
	}
	if err := p.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return provider.Payload{
		provider.KeyTaskID:          task.ID,
		provider.KeyTaskType:        p.taskType,
		provider.KeyTitle:           task.Title,
		provider.KeyTaskDescription: "generated",
		provider.KeyInstructions:    "go",
		provider.KeyTaskDuration:    p.duration,
	}, nil
}

func newSweepRig(t *testing.T, now time.Time) (*Sweeper, *memory.Store, *orchestrator.Orchestrator) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	plans := plan.NewStore(store.PlanNodes(), store.Workshops(), logger)
	set, err := provider.NewSet(
		&fixedProvider{taskType: registry.TypeFraming, tasks: store.Tasks(), duration: 60},
		&fixedProvider{taskType: registry.TypeSummary, tasks: store.Tasks(), duration: 60},
	)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	clock := func() time.Time { return now }
	orch := orchestrator.New(store.Workshops(), store.Tasks(), store.Transcripts(), plans, set, nil, nil, logger).
		WithClock(clock)
	sweeper := New(store.Workshops(), store.Tasks(), orch, nil, logger, Config{}).WithClock(clock)
	return sweeper, store, orch
}

func seedWorkshop(t *testing.T, store *memory.Store, plans []string, ws *workshop.Workshop) {
	t.Helper()
	ctx := context.Background()
	if err := store.Workshops().Create(ctx, ws); err != nil {
		t.Fatalf("Create: %v", err)
	}
	nodes := make([]workshop.PlanNode, len(plans))
	for i, tt := range plans {
		nodes[i] = workshop.PlanNode{WorkshopID: ws.ID, OrderIndex: i, TaskType: tt, Enabled: true}
	}
	if err := store.PlanNodes().ReplaceAll(ctx, ws.ID, nodes); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
}

func TestSweepAutoAdvancesExpiredPhase(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	sweeper, store, _ := newSweepRig(t, now)
	ctx := context.Background()

	started := now.Add(-90 * time.Second) // 60s phase plus 10s grace, well past expiry
	idx := 0
	ws := &workshop.Workshop{
		Title:                   "Live",
		Flavor:                  workshop.FlavorCustom,
		Status:                  workshop.StatusInProgress,
		AutoAdvanceEnabled:      true,
		AutoAdvanceAfterSeconds: 10,
		CurrentTaskIndex:        &idx,
		TimerStartTime:          &started,
	}
	seedWorkshop(t, store, []string{registry.TypeFraming, registry.TypeSummary}, ws)

	task := &workshop.Task{
		WorkshopID: ws.ID,
		TaskType:   registry.TypeFraming,
		Title:      "framing",
		Duration:   60,
		Status:     workshop.TaskRunning,
		StartedAt:  &started,
	}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}
	ws.CurrentTaskID = &task.ID
	if err := store.Workshops().Update(ctx, ws); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sweeper.Sweep(ctx)

	updated, _ := store.Workshops().Get(ctx, ws.ID)
	if updated.CurrentTaskIndex == nil || *updated.CurrentTaskIndex != 1 {
		t.Fatalf("index = %v, want 1 after auto-advance", updated.CurrentTaskIndex)
	}
}

func TestSweepRespectsGraceWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	sweeper, store, _ := newSweepRig(t, now)
	ctx := context.Background()

	started := now.Add(-65 * time.Second) // Expired but inside the 30s grace.
	idx := 0
	ws := &workshop.Workshop{
		Title:                   "Live",
		Flavor:                  workshop.FlavorCustom,
		Status:                  workshop.StatusInProgress,
		AutoAdvanceEnabled:      true,
		AutoAdvanceAfterSeconds: 30,
		CurrentTaskIndex:        &idx,
		TimerStartTime:          &started,
	}
	seedWorkshop(t, store, []string{registry.TypeFraming, registry.TypeSummary}, ws)

	task := &workshop.Task{
		WorkshopID: ws.ID,
		TaskType:   registry.TypeFraming,
		Duration:   60,
		Status:     workshop.TaskRunning,
		StartedAt:  &started,
	}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}
	ws.CurrentTaskID = &task.ID
	if err := store.Workshops().Update(ctx, ws); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sweeper.Sweep(ctx)

	updated, _ := store.Workshops().Get(ctx, ws.ID)
	if *updated.CurrentTaskIndex != 0 {
		t.Fatalf("index = %d, sweep advanced inside the grace window", *updated.CurrentTaskIndex)
	}
}

func TestSweepCompletesExhaustedPlan(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	sweeper, store, _ := newSweepRig(t, now)
	ctx := context.Background()

	started := now.Add(-10 * time.Minute)
	idx := 1 // Last phase.
	ws := &workshop.Workshop{
		Title:              "Ending",
		Flavor:             workshop.FlavorCustom,
		Status:             workshop.StatusInProgress,
		AutoAdvanceEnabled: true,
		CurrentTaskIndex:   &idx,
		TimerStartTime:     &started,
	}
	seedWorkshop(t, store, []string{registry.TypeFraming, registry.TypeSummary}, ws)

	task := &workshop.Task{
		WorkshopID: ws.ID,
		TaskType:   registry.TypeSummary,
		Duration:   60,
		Status:     workshop.TaskRunning,
		StartedAt:  &started,
	}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}
	ws.CurrentTaskID = &task.ID
	if err := store.Workshops().Update(ctx, ws); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sweeper.Sweep(ctx)

	updated, _ := store.Workshops().Get(ctx, ws.ID)
	if updated.Status != workshop.StatusCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}
	ended, _ := store.Tasks().Get(ctx, task.ID)
	if ended.Status != workshop.TaskCompleted {
		t.Fatalf("task status = %s, want completed", ended.Status)
	}
}

func TestSweepAutoStartsScheduledWorkshop(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	sweeper, store, _ := newSweepRig(t, now)
	ctx := context.Background()

	startAt := now.Add(-time.Minute)
	ws := &workshop.Workshop{
		Title:            "Morning session",
		Flavor:           workshop.FlavorCustom,
		Status:           workshop.StatusScheduled,
		AutoStartEnabled: true,
		ScheduledStartAt: &startAt,
	}
	seedWorkshop(t, store, []string{registry.TypeFraming, registry.TypeSummary}, ws)

	sweeper.Sweep(ctx)

	updated, _ := store.Workshops().Get(ctx, ws.ID)
	if updated.Status != workshop.StatusInProgress {
		t.Fatalf("status = %s, want inprogress", updated.Status)
	}
	if updated.CurrentTaskIndex == nil || *updated.CurrentTaskIndex != 0 {
		t.Fatalf("index = %v, want 0", updated.CurrentTaskIndex)
	}
}

func TestSweepIgnoresFutureScheduledStart(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	sweeper, store, _ := newSweepRig(t, now)
	ctx := context.Background()

	startAt := now.Add(time.Hour)
	ws := &workshop.Workshop{
		Title:            "Afternoon session",
		Flavor:           workshop.FlavorCustom,
		Status:           workshop.StatusScheduled,
		AutoStartEnabled: true,
		ScheduledStartAt: &startAt,
	}
	seedWorkshop(t, store, []string{registry.TypeFraming, registry.TypeSummary}, ws)

	sweeper.Sweep(ctx)

	updated, _ := store.Workshops().Get(ctx, ws.ID)
	if updated.Status != workshop.StatusScheduled {
		t.Fatalf("status = %s, want still scheduled", updated.Status)
	}
}
