package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/broadcomms/brainstormx/internal/broadcast"
	"github.com/broadcomms/brainstormx/internal/provider"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Start moves a scheduled workshop into progress and activates its first
// runnable phase.
func (o *Orchestrator) Start(ctx context.Context, workshopID int64) (provider.Payload, error) {
	unlock := o.lock(workshopID)
	defer unlock()

	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}
	if ws.Status != workshop.StatusScheduled {
		return nil, fmt.Errorf("cannot start workshop %d with status %s: %w", workshopID, ws.Status, ErrInvalidTransition)
	}

	ws.Status = workshop.StatusInProgress
	if err := o.workshops.UpdateGuarded(ctx, ws, ws.CurrentTaskID, workshop.StatusScheduled); err != nil {
		return nil, fmt.Errorf("starting workshop %d: %w", workshopID, err)
	}
	if o.metrics != nil {
		o.metrics.ActiveWorkshops.Inc()
	}
	o.emit(broadcast.Room(ws.ID), EventWorkshopStarted, map[string]any{
		"workshop_id": ws.ID,
		"title":       ws.Title,
	})
	o.logger.Info("workshop started", slog.Int64("workshop_id", ws.ID))

	return o.advanceLocked(ctx, workshopID)
}

// Pause suspends the workshop timer. Only valid while in progress.
func (o *Orchestrator) Pause(ctx context.Context, workshopID int64) (broadcast.TimerState, error) {
	unlock := o.lock(workshopID)
	defer unlock()

	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return broadcast.TimerState{}, fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}

	now := o.now()
	expectTaskID := ws.CurrentTaskID
	if err := workshop.Pause(ws, now); err != nil {
		return broadcast.TimerState{}, err
	}
	if err := o.workshops.UpdateGuarded(ctx, ws, expectTaskID, workshop.StatusInProgress); err != nil {
		return broadcast.TimerState{}, fmt.Errorf("pausing workshop %d: %w", workshopID, err)
	}

	state := o.timerState(ctx, ws, now)
	room := broadcast.Room(ws.ID)
	o.emit(room, EventWorkshopPaused, map[string]any{"workshop_id": ws.ID})
	o.broadcaster.EmitTimerSync(room, state, ws.ID)
	o.logger.Info("workshop paused",
		slog.Int64("workshop_id", ws.ID),
		slog.Int("remaining_s", state.RemainingSeconds),
	)
	return state, nil
}

// Resume restarts a paused workshop's timer, preserving elapsed time.
func (o *Orchestrator) Resume(ctx context.Context, workshopID int64) (broadcast.TimerState, error) {
	unlock := o.lock(workshopID)
	defer unlock()

	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return broadcast.TimerState{}, fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}

	now := o.now()
	expectTaskID := ws.CurrentTaskID
	if err := workshop.Resume(ws, now); err != nil {
		return broadcast.TimerState{}, err
	}
	if err := o.workshops.UpdateGuarded(ctx, ws, expectTaskID, workshop.StatusPaused); err != nil {
		return broadcast.TimerState{}, fmt.Errorf("resuming workshop %d: %w", workshopID, err)
	}

	state := o.timerState(ctx, ws, now)
	room := broadcast.Room(ws.ID)
	o.emit(room, EventWorkshopResumed, map[string]any{"workshop_id": ws.ID})
	o.broadcaster.EmitTimerSync(room, state, ws.ID)
	o.logger.Info("workshop resumed",
		slog.Int64("workshop_id", ws.ID),
		slog.Int("remaining_s", state.RemainingSeconds),
	)
	return state, nil
}

// Complete ends the workshop: the running task is completed, pointers and
// timer fields are cleared, and the cached payload is dropped.
func (o *Orchestrator) Complete(ctx context.Context, workshopID int64) error {
	return o.finish(ctx, workshopID, workshop.StatusCompleted, EventWorkshopCompleted)
}

// Cancel aborts the workshop from any non-terminal status.
func (o *Orchestrator) Cancel(ctx context.Context, workshopID int64) error {
	return o.finish(ctx, workshopID, workshop.StatusCancelled, EventWorkshopCancelled)
}

func (o *Orchestrator) finish(ctx context.Context, workshopID int64, terminal workshop.Status, event string) error {
	unlock := o.lock(workshopID)
	defer unlock()

	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}

	allowed := []workshop.Status{workshop.StatusInProgress, workshop.StatusPaused}
	if terminal == workshop.StatusCancelled {
		allowed = append(allowed, workshop.StatusScheduled)
	}
	permitted := false
	for _, st := range allowed {
		if ws.Status == st {
			permitted = true
			break
		}
	}
	if !permitted {
		return fmt.Errorf("cannot move workshop %d from %s to %s: %w", workshopID, ws.Status, terminal, ErrInvalidTransition)
	}
	wasActive := ws.Status.Active()

	now := o.now()
	expectTaskID := ws.CurrentTaskID
	if err := o.endRunningTask(ctx, ws, now); err != nil {
		return err
	}

	ws.Status = terminal
	ws.CurrentTaskID = nil
	ws.CurrentTaskIndex = nil
	ws.TimerStartTime = nil
	ws.TimerPausedAt = nil
	ws.TimerElapsedBeforePause = 0
	if err := o.workshops.UpdateGuarded(ctx, ws, expectTaskID, allowed...); err != nil {
		return fmt.Errorf("finishing workshop %d: %w", workshopID, err)
	}

	o.cache.Remove(ws.ID)
	if wasActive && o.metrics != nil {
		o.metrics.ActiveWorkshops.Dec()
	}
	o.emit(broadcast.Room(ws.ID), event, map[string]any{"workshop_id": ws.ID})
	o.logger.Info("workshop finished",
		slog.Int64("workshop_id", ws.ID),
		slog.String("status", string(terminal)),
	)
	return nil
}

// TimerState computes the current timer snapshot for a workshop. Pure read,
// safe to call concurrently with transitions.
func (o *Orchestrator) TimerState(ctx context.Context, workshopID int64) (broadcast.TimerState, error) {
	ws, err := o.workshops.Get(ctx, workshopID)
	if err != nil {
		return broadcast.TimerState{}, fmt.Errorf("loading workshop %d: %w", workshopID, err)
	}
	return o.timerState(ctx, ws, o.now()), nil
}

// CurrentPayload returns the cached payload of the active phase for
// reconnecting clients.
func (o *Orchestrator) CurrentPayload(workshopID int64) (provider.Payload, bool) {
	return o.cache.Get(workshopID)
}

func (o *Orchestrator) timerState(ctx context.Context, ws *workshop.Workshop, now time.Time) broadcast.TimerState {
	state := broadcast.TimerState{
		TaskID:   ws.CurrentTaskID,
		IsPaused: ws.Status == workshop.StatusPaused,
	}
	if ws.CurrentTaskID == nil {
		return state
	}
	task, err := o.tasks.Get(ctx, *ws.CurrentTaskID)
	if err != nil {
		return state
	}
	state.RemainingSeconds = workshop.Remaining(ws, task.Duration, now)
	return state
}
