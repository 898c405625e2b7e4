// Package orchestrator implements the phase transition engine: automatic
// advancement with scan-and-skip, explicit navigation, and the workshop
// lifecycle operations built on the timer/state machine.
//
// Concurrency: every transition runs under a per-workshop mutex, and the
// final persistence re-validates status and the current-task pointer inside
// the store's transaction boundary, so two concurrent calls can never both
// believe they advanced from the same prior task. Content providers are
// invoked outside any database transaction because they may block on
// external generation calls.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/broadcomms/brainstormx/internal/broadcast"
	"github.com/broadcomms/brainstormx/internal/plan"
	"github.com/broadcomms/brainstormx/internal/provider"
	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Lifecycle event names emitted beyond the per-phase registry events.
const (
	EventWorkshopStarted   = "workshop_started"
	EventWorkshopPaused    = "workshop_paused"
	EventWorkshopResumed   = "workshop_resumed"
	EventWorkshopCompleted = "workshop_completed"
	EventWorkshopCancelled = "workshop_cancelled"

	// EventWarmupCompleted is the one-shot handoff broadcast emitted when a
	// warm-up phase ends, carrying the transition phrase for the facilitator.
	EventWarmupCompleted = "warmup_completed"
)

// facilitatorID identifies AI-generated narration in the transcript.
const facilitatorID = "ai_facilitator"

var (
	// ErrEmptyPlan means the workshop has no enabled plan nodes at all.
	ErrEmptyPlan = errors.New("no tasks in the action plan")

	// ErrEndOfPlan means the advancement scan exhausted the plan with no
	// runnable phase. Callers interpret it as workshop completion, not as a
	// failure.
	ErrEndOfPlan = errors.New("no more tasks in the action plan")

	// ErrInvalidTransition rejects a lifecycle operation the workshop's
	// current status does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NavigationError rejects an explicit jump: out-of-range target or unmet
// phase dependency. These are caller input errors, never server faults.
type NavigationError struct {
	TargetIndex int
	TaskType    string
	Reason      string
}

func (e *NavigationError) Error() string {
	if e.TaskType != "" {
		return fmt.Sprintf("cannot jump to phase %d (%s): %s", e.TargetIndex, e.TaskType, e.Reason)
	}
	return fmt.Sprintf("cannot jump to phase %d: %s", e.TargetIndex, e.Reason)
}

// Orchestrator drives phase transitions for workshops.
type Orchestrator struct {
	workshops   workshop.WorkshopStore
	tasks       workshop.TaskStore
	transcripts workshop.TranscriptStore
	plans       *plan.Store
	providers   *provider.Set
	broadcaster broadcast.Broadcaster
	cache       *PayloadCache
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates an orchestrator. broadcaster may be nil (events are dropped);
// metrics may be nil (nothing is recorded).
func New(
	workshops workshop.WorkshopStore,
	tasks workshop.TaskStore,
	transcripts workshop.TranscriptStore,
	plans *plan.Store,
	providers *provider.Set,
	broadcaster broadcast.Broadcaster,
	metrics *Metrics,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if broadcaster == nil {
		broadcaster = broadcast.Discard{}
	}
	return &Orchestrator{
		workshops:   workshops,
		tasks:       tasks,
		transcripts: transcripts,
		plans:       plans,
		providers:   providers,
		broadcaster: broadcaster,
		cache:       NewPayloadCache(),
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		locks:       make(map[int64]*sync.Mutex),
	}
}

// WithClock replaces the time source. Tests use it to pin the clock.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// lock acquires the per-workshop mutex and returns its release function.
func (o *Orchestrator) lock(workshopID int64) func() {
	o.mu.Lock()
	m, ok := o.locks[workshopID]
	if !ok {
		m = &sync.Mutex{}
		o.locks[workshopID] = m
	}
	o.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// AdvanceToNext completes the current phase (if any) and activates the next
// runnable phase in the plan, scanning forward past phases whose upstream
// data does not exist yet. Returns ErrEndOfPlan when the scan exhausts the
// plan.
func (o *Orchestrator) AdvanceToNext(ctx context.Context, workshopID int64) (provider.Payload, error) {
	unlock := o.lock(workshopID)
	defer unlock()
	return o.advanceLocked(ctx, workshopID)
}

func (o *Orchestrator) advanceLocked(ctx context.Context, workshopID int64) (provider.Payload, error) {
	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}
	if ws.Status != workshop.StatusInProgress {
		return nil, fmt.Errorf("cannot advance workshop %d with status %s: %w",
			workshopID, ws.Status, workshop.ErrNotInProgress)
	}

	now := o.now()
	expectTaskID := ws.CurrentTaskID

	if err := o.endRunningTask(ctx, ws, now); err != nil {
		return nil, err
	}

	nodes, err := o.plans.Effective(ctx, ws)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrEmptyPlan
	}

	start := 0
	if ws.CurrentTaskIndex != nil {
		start = *ws.CurrentTaskIndex + 1
	}

	for i := start; i < len(nodes); i++ {
		node := nodes[i]
		payload, err := o.generate(ctx, ws, node)
		if provider.IsPrerequisite(err) {
			o.logger.Info("skipping phase during advancement",
				slog.Int64("workshop_id", ws.ID),
				slog.Int("plan_index", i),
				slog.String("task_type", node.TaskType),
				slog.String("reason", err.Error()),
			)
			if o.metrics != nil {
				o.metrics.PhasesSkipped.WithLabelValues(node.TaskType).Inc()
			}
			continue
		}
		if err != nil {
			if o.metrics != nil {
				o.metrics.TransitionsTotal.WithLabelValues(node.TaskType, "failed").Inc()
			}
			return nil, fmt.Errorf("generating content for %s at plan index %d: %w", node.TaskType, i, err)
		}
		return o.activate(ctx, ws, node, i, payload, expectTaskID, workshop.StatusInProgress)
	}

	return nil, ErrEndOfPlan
}

// GoToTask jumps directly to the plan node at targetIndex. Unlike automatic
// advancement there is no forward-skipping: an unmet dependency fails the
// call. Navigation is permitted while paused and resumes the workshop.
func (o *Orchestrator) GoToTask(ctx context.Context, workshopID int64, targetIndex int) (provider.Payload, error) {
	unlock := o.lock(workshopID)
	defer unlock()

	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}
	if !ws.Status.Active() {
		return nil, fmt.Errorf("cannot navigate workshop %d with status %s: %w",
			workshopID, ws.Status, workshop.ErrNotInProgress)
	}

	nodes, err := o.plans.Effective(ctx, ws)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrEmptyPlan
	}
	if targetIndex < 0 || targetIndex >= len(nodes) {
		return nil, &NavigationError{
			TargetIndex: targetIndex,
			Reason:      fmt.Sprintf("index out of range, plan has %d phases", len(nodes)),
		}
	}

	now := o.now()
	expectTaskID := ws.CurrentTaskID

	if err := o.endRunningTask(ctx, ws, now); err != nil {
		return nil, err
	}

	node := nodes[targetIndex]
	payload, err := o.generate(ctx, ws, node)
	if provider.IsPrerequisite(err) {
		return nil, &NavigationError{TargetIndex: targetIndex, TaskType: node.TaskType, Reason: err.Error()}
	}
	if err != nil {
		if o.metrics != nil {
			o.metrics.TransitionsTotal.WithLabelValues(node.TaskType, "failed").Inc()
		}
		return nil, fmt.Errorf("generating content for %s at plan index %d: %w", node.TaskType, targetIndex, err)
	}

	return o.activate(ctx, ws, node, targetIndex, payload, expectTaskID,
		workshop.StatusInProgress, workshop.StatusPaused)
}

// generate resolves the node's runtime dependency and invokes its content
// provider. A missing dependency surfaces as a typed prerequisite error so
// callers decide between skipping and failing.
func (o *Orchestrator) generate(ctx context.Context, ws *workshop.Workshop, node workshop.PlanNode) (provider.Payload, error) {
	depID, err := o.resolveDependency(ctx, ws, node)
	if err != nil {
		return nil, err
	}

	p, ok := o.providers.For(node.TaskType)
	if !ok {
		return nil, fmt.Errorf("no content provider registered for task type %q", node.TaskType)
	}

	started := o.now()
	payload, err := p.Generate(ctx, ws.ID, depID, phaseContext(node))
	if o.metrics != nil {
		o.metrics.ProviderDuration.WithLabelValues(node.TaskType).Observe(o.now().Sub(started).Seconds())
	}
	return payload, err
}

// resolveDependency returns the id of the most recent upstream Task the node
// consumes, or nil when the type has no runtime dependency.
func (o *Orchestrator) resolveDependency(ctx context.Context, ws *workshop.Workshop, node workshop.PlanNode) (*int64, error) {
	entry, ok := registry.Lookup(node.TaskType)
	if !ok {
		return nil, fmt.Errorf("unknown task type %q at plan index %d", node.TaskType, node.OrderIndex)
	}

	depType := entry.DependsOnTask
	if node.TaskType == registry.TypeVoting {
		depType = registry.DependsOnTaskForVotingStage(plan.VotingStage(node.ConfigJSON))
	}
	if depType == "" {
		return nil, nil
	}

	dep, err := o.tasks.LatestByType(ctx, ws.ID, depType)
	if errors.Is(err, workshop.ErrNotFound) {
		return nil, provider.Prerequisite("no %s phase has run yet", depType)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving %s dependency for %s: %w", depType, node.TaskType, err)
	}
	return &dep.ID, nil
}

// activate is the shared tail of advancement and navigation: apply the
// organizer's duration override, validate the payload, persist the pointer
// move under the guarded update, then broadcast.
func (o *Orchestrator) activate(
	ctx context.Context,
	ws *workshop.Workshop,
	node workshop.PlanNode,
	index int,
	payload provider.Payload,
	expectTaskID *int64,
	allowed ...workshop.Status,
) (provider.Payload, error) {
	now := o.now()

	// Organizer intent always wins over the generator's suggested duration.
	if secs, set := node.Duration.Seconds(); set && secs > 0 {
		payload.SetDuration(secs)
	}

	if err := provider.Validate(node.TaskType, payload); err != nil {
		o.abandonTask(ctx, payload, now)
		if o.metrics != nil {
			o.metrics.TransitionsTotal.WithLabelValues(node.TaskType, "invalid").Inc()
		}
		return nil, fmt.Errorf("validating payload for %s: %w", node.TaskType, err)
	}

	taskID, ok := payload.TaskID()
	if !ok {
		return nil, provider.Validation("payload for %s has non-numeric task_id", node.TaskType)
	}
	task, err := o.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("loading generated task %d: %w", taskID, err)
	}

	// The payload is the source of truth for duration at activation time.
	if d, ok := payload.Duration(); ok && task.Duration != d {
		task.Duration = d
	}

	workshop.StartPhase(ws, task, now)
	idx := index
	ws.CurrentTaskIndex = &idx
	ws.Status = workshop.StatusInProgress

	if err := o.workshops.UpdateGuarded(ctx, ws, expectTaskID, allowed...); err != nil {
		o.abandonTask(ctx, payload, now)
		if errors.Is(err, workshop.ErrConflict) && o.metrics != nil {
			o.metrics.ConflictsTotal.Inc()
		}
		return nil, fmt.Errorf("persisting phase transition for workshop %d: %w", ws.ID, err)
	}
	if err := o.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("marking task %d running: %w", task.ID, err)
	}

	o.cache.Put(ws.ID, payload)
	o.saveNarration(ctx, ws.ID, task.ID, payload)

	entry, _ := registry.Lookup(node.TaskType)
	room := broadcast.Room(ws.ID)
	o.emit(room, entry.Event, map[string]any(payload))
	state := broadcast.TimerState{TaskID: &task.ID, RemainingSeconds: task.Duration, IsPaused: false}
	o.broadcaster.EmitTimerSync(room, state, ws.ID)
	if o.metrics != nil {
		o.metrics.BroadcastsEmitted.WithLabelValues(broadcast.EventTimerSync).Inc()
		o.metrics.TransitionsTotal.WithLabelValues(node.TaskType, "activated").Inc()
	}

	o.logger.Info("phase activated",
		slog.Int64("workshop_id", ws.ID),
		slog.Int("plan_index", index),
		slog.String("task_type", node.TaskType),
		slog.Int64("task_id", task.ID),
		slog.Int("duration_s", task.Duration),
	)
	return payload, nil
}

// endRunningTask completes the currently running task, if any, and emits the
// warm-up handoff broadcast when the ended phase was a warm-up.
func (o *Orchestrator) endRunningTask(ctx context.Context, ws *workshop.Workshop, now time.Time) error {
	running, err := o.tasks.Running(ctx, ws.ID)
	if errors.Is(err, workshop.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading running task for workshop %d: %w", ws.ID, err)
	}
	if !workshop.EndTask(running, now) {
		return nil
	}
	if err := o.tasks.Update(ctx, running); err != nil {
		return fmt.Errorf("completing task %d: %w", running.ID, err)
	}
	o.cache.Remove(ws.ID)

	if running.TaskType == registry.TypeWarmup {
		payload := map[string]any{
			"workshop_id": ws.ID,
			"task_id":     running.ID,
		}
		if phrase := transitionPhrase(running.PayloadJSON); phrase != "" {
			payload["transition_phrase"] = phrase
		}
		o.emit(broadcast.Room(ws.ID), EventWarmupCompleted, payload)
	}
	return nil
}

// abandonTask marks a generated-but-never-activated task skipped so it does
// not linger as pending. Best-effort.
func (o *Orchestrator) abandonTask(ctx context.Context, payload provider.Payload, now time.Time) {
	id, ok := payload.TaskID()
	if !ok {
		return
	}
	task, err := o.tasks.Get(ctx, id)
	if err != nil || task.Status != workshop.TaskPending {
		return
	}
	task.Status = workshop.TaskSkipped
	task.EndedAt = &now
	if err := o.tasks.Update(ctx, task); err != nil {
		o.logger.Warn("failed to mark abandoned task skipped",
			slog.Int64("task_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// saveNarration persists facilitator narration from the payload. Failures
// are logged, never propagated: narration must not roll back a transition.
func (o *Orchestrator) saveNarration(ctx context.Context, workshopID, taskID int64, payload provider.Payload) {
	text := payload.Narration()
	if text == "" {
		return
	}
	entry := &workshop.TranscriptEntry{
		WorkshopID:    workshopID,
		TaskID:        taskID,
		FacilitatorID: facilitatorID,
		Text:          text,
	}
	if err := o.transcripts.SaveNarration(ctx, entry); err != nil {
		o.logger.Warn("failed to persist narration",
			slog.Int64("workshop_id", workshopID),
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) emit(room, event string, payload map[string]any) {
	o.broadcaster.Emit(room, event, payload)
	if o.metrics != nil {
		o.metrics.BroadcastsEmitted.WithLabelValues(event).Inc()
	}
}

// transitionPhrase digs the warm-up handoff phrase out of a persisted
// payload.
func transitionPhrase(payloadJSON string) string {
	if payloadJSON == "" {
		return ""
	}
	var p provider.Payload
	if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
		return ""
	}
	return p.TransitionPhrase()
}

// phaseContext renders the free-text context handed to content providers.
func phaseContext(node workshop.PlanNode) string {
	if node.Description != "" {
		return node.Description
	}
	return node.Phase
}
