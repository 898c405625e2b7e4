package workshop

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)

func runningWorkshop() *Workshop {
	start := t0
	return &Workshop{
		ID:             1,
		Status:         StatusInProgress,
		TimerStartTime: &start,
		PhaseStartedAt: &start,
	}
}

func TestStartPhaseResetsTimer(t *testing.T) {
	ws := &Workshop{ID: 1, Status: StatusInProgress, TimerElapsedBeforePause: 120}
	task := &Task{ID: 7, WorkshopID: 1, Duration: 300, Status: TaskPending}

	StartPhase(ws, task, t0)

	if ws.TimerElapsedBeforePause != 0 {
		t.Errorf("pause credit carried across phases: %d", ws.TimerElapsedBeforePause)
	}
	if ws.TimerStartTime == nil || !ws.TimerStartTime.Equal(t0) {
		t.Errorf("timer start = %v", ws.TimerStartTime)
	}
	if ws.CurrentTaskID == nil || *ws.CurrentTaskID != 7 {
		t.Errorf("current task id = %v", ws.CurrentTaskID)
	}
	if task.Status != TaskRunning || task.StartedAt == nil {
		t.Errorf("task not running: %+v", task)
	}
}

func TestPausePreservesElapsed(t *testing.T) {
	ws := runningWorkshop()

	if err := Pause(ws, t0.Add(90*time.Second)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if ws.Status != StatusPaused {
		t.Errorf("status = %s", ws.Status)
	}
	if ws.TimerElapsedBeforePause != 90 {
		t.Errorf("elapsed = %d, want 90", ws.TimerElapsedBeforePause)
	}
	if ws.TimerStartTime != nil {
		t.Error("timer start not cleared on pause")
	}

	// Remaining is frozen while paused, regardless of wall time.
	if got := Remaining(ws, 300, t0.Add(1*time.Hour)); got != 210 {
		t.Errorf("remaining while paused = %d, want 210", got)
	}
}

func TestResumeContinuesFromPause(t *testing.T) {
	ws := runningWorkshop()
	if err := Pause(ws, t0.Add(90*time.Second)); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	resumeAt := t0.Add(10 * time.Minute)
	if err := Resume(ws, resumeAt); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if ws.Status != StatusInProgress {
		t.Errorf("status = %s", ws.Status)
	}

	// 90s elapsed before the pause plus 30s after the resume.
	if got := Remaining(ws, 300, resumeAt.Add(30*time.Second)); got != 180 {
		t.Errorf("remaining after resume = %d, want 180", got)
	}
}

func TestPauseRequiresInProgress(t *testing.T) {
	for _, status := range []Status{StatusScheduled, StatusPaused, StatusCompleted, StatusCancelled} {
		ws := &Workshop{Status: status}
		if err := Pause(ws, t0); err != ErrNotInProgress {
			t.Errorf("Pause from %s: err = %v", status, err)
		}
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	for _, status := range []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled} {
		ws := &Workshop{Status: status}
		if err := Resume(ws, t0); err != ErrNotPaused {
			t.Errorf("Resume from %s: err = %v", status, err)
		}
	}
}

func TestRemainingClampsAtZero(t *testing.T) {
	ws := runningWorkshop()
	if got := Remaining(ws, 300, t0.Add(20*time.Minute)); got != 0 {
		t.Errorf("overdue remaining = %d, want 0", got)
	}
}

func TestRemainingWithNoTimer(t *testing.T) {
	ws := &Workshop{Status: StatusScheduled}
	if got := Remaining(ws, 300, t0); got != 300 {
		t.Errorf("remaining = %d, want full duration", got)
	}
}

func TestEndTaskIdempotent(t *testing.T) {
	task := &Task{ID: 1, Status: TaskRunning}
	if !EndTask(task, t0) {
		t.Fatal("first end reported false")
	}
	if task.Status != TaskCompleted || task.EndedAt == nil {
		t.Fatalf("task not completed: %+v", task)
	}

	first := *task.EndedAt
	if EndTask(task, t0.Add(time.Minute)) {
		t.Error("second end reported true")
	}
	if !task.EndedAt.Equal(first) {
		t.Error("second end moved the end timestamp")
	}

	if EndTask(nil, t0) {
		t.Error("nil task reported true")
	}
	skipped := &Task{Status: TaskSkipped}
	if EndTask(skipped, t0) {
		t.Error("skipped task reported true")
	}
}

func TestStatusActive(t *testing.T) {
	active := map[Status]bool{
		StatusScheduled:  false,
		StatusInProgress: true,
		StatusPaused:     true,
		StatusCompleted:  false,
		StatusCancelled:  false,
	}
	for status, want := range active {
		if got := status.Active(); got != want {
			t.Errorf("%s.Active() = %v, want %v", status, got, want)
		}
	}
}

func TestDurationOverrideSentinel(t *testing.T) {
	if OverrideFromSentinel(0) != NoOverride() {
		t.Error("zero sentinel must decode as no override")
	}
	if got := Override(600).Sentinel(); got != 600 {
		t.Errorf("sentinel = %d", got)
	}
	if got := NoOverride().Sentinel(); got != 0 {
		t.Errorf("absent sentinel = %d", got)
	}
	secs, set := OverrideFromSentinel(45).Seconds()
	if !set || secs != 45 {
		t.Errorf("round trip = %d %v", secs, set)
	}
}
