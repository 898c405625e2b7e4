package workshop

import (
	"errors"
	"time"
)

// Timer/state transitions are pure mutations over the persisted fields so
// any caller (HTTP handler, background sweeper, tests) computes the same
// result from the same stored state. Persistence is the caller's job.

var (
	// ErrNotInProgress rejects pause (and automatic advancement) when the
	// workshop is not running.
	ErrNotInProgress = errors.New("workshop is not in progress")

	// ErrNotPaused rejects resume when the workshop is not paused.
	ErrNotPaused = errors.New("workshop is not paused")
)

// StartPhase resets the workshop timer for a newly activated task and marks
// the task running. Elapsed-before-pause is cleared: pause credit never
// carries across phases.
func StartPhase(ws *Workshop, task *Task, now time.Time) {
	ws.TimerStartTime = &now
	ws.TimerPausedAt = nil
	ws.TimerElapsedBeforePause = 0
	ws.PhaseStartedAt = &now

	task.Status = TaskRunning
	task.StartedAt = &now

	ws.CurrentTaskID = &task.ID
}

// Pause folds the current run segment into the accumulated elapsed time and
// suspends the timer. Only valid while inprogress.
func Pause(ws *Workshop, now time.Time) error {
	if ws.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if ws.TimerStartTime != nil {
		ws.TimerElapsedBeforePause += int(now.Sub(*ws.TimerStartTime).Seconds())
		ws.TimerStartTime = nil
	}
	ws.TimerPausedAt = &now
	ws.Status = StatusPaused
	return nil
}

// Resume restarts the timer from now, preserving the accumulated elapsed
// time so remaining-time computation stays correct. Only valid while paused.
func Resume(ws *Workshop, now time.Time) error {
	if ws.Status != StatusPaused {
		return ErrNotPaused
	}
	ws.TimerStartTime = &now
	ws.TimerPausedAt = nil
	ws.Status = StatusInProgress
	return nil
}

// Remaining returns the seconds left in the current phase given the task's
// concrete duration, clamped to zero. Pure: derivable at any instant from
// persisted fields alone.
func Remaining(ws *Workshop, taskDuration int, now time.Time) int {
	elapsed := ws.TimerElapsedBeforePause
	if ws.Status == StatusInProgress && ws.TimerStartTime != nil {
		elapsed += int(now.Sub(*ws.TimerStartTime).Seconds())
	}
	remaining := taskDuration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EndTask marks a running task completed. Idempotent: ending an
// already-completed (or skipped) task is a no-op and reports false.
func EndTask(task *Task, now time.Time) bool {
	if task == nil || task.Status != TaskRunning {
		return false
	}
	task.Status = TaskCompleted
	task.EndedAt = &now
	return true
}
