// Package workshop defines the core domain types for facilitated workshop
// sessions (workshops, plan nodes, phase tasks, transcripts) and the
// timer/state machine that governs their lifecycle.
//
// Persistence interfaces live here too; storage backends implement them
// without leaking ORM types into the domain.
package workshop

import (
	"time"
)

// Status is the lifecycle state of a workshop.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "inprogress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether a workshop in this status can have a running phase.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusPaused
}

// TaskStatus is the lifecycle state of a phase task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskSkipped   TaskStatus = "skipped"
)

// Flavor selects the default plan template seeded at workshop creation.
type Flavor string

const (
	FlavorBrainstorm   Flavor = "brainstorm"
	FlavorMeeting      Flavor = "meeting"
	FlavorPresentation Flavor = "presentation"
	FlavorCustom       Flavor = "custom"
)

// Workshop is one live session.
//
// Invariant: CurrentTaskID is non-nil iff Status is inprogress or paused and
// a phase is actively running; it is nil in scheduled/completed/cancelled.
type Workshop struct {
	ID        int64
	Title     string
	Flavor    Flavor
	CreatorID string
	Status    Status

	// Pointers into the plan. Nil when no phase is active.
	CurrentTaskID    *int64
	CurrentTaskIndex *int

	// Timer bookkeeping for the current phase.
	TimerStartTime          *time.Time // When the current run segment began. Nil while paused.
	TimerPausedAt           *time.Time
	TimerElapsedBeforePause int        // Accumulated seconds across prior run segments of the current task.
	PhaseStartedAt          *time.Time // Wall-clock anchor for the whole phase (UI countdown).

	AutoAdvanceEnabled      bool
	AutoAdvanceAfterSeconds int // Grace after phase expiry before the sweeper advances.

	AutoStartEnabled bool
	ScheduledStartAt *time.Time

	// PlanJSON is the legacy serialized plan representation, mirrored on
	// every plan write for backward compatibility.
	PlanJSON string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is one concrete, instantiated run of a phase.
//
// Invariant: at most one Task per workshop has status running at any time.
// A jump to a previously visited plan index creates a new Task row; tasks
// never transition back to running.
type Task struct {
	ID          int64
	WorkshopID  int64
	TaskType    string
	Title       string
	Description string
	Duration    int // Concrete seconds, never the 0 sentinel.
	Status      TaskStatus
	StartedAt   *time.Time
	EndedAt     *time.Time
	PayloadJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DurationOverride is the organizer's optional per-node duration. The legacy
// representation overloads integer zero as "no override"; in the domain the
// two cases are kept explicit so an accidental zero-duration phase cannot
// slip through.
type DurationOverride struct {
	seconds int
	set     bool
}

// Override returns a set duration override.
func Override(seconds int) DurationOverride {
	return DurationOverride{seconds: seconds, set: true}
}

// NoOverride returns the absent override.
func NoOverride() DurationOverride {
	return DurationOverride{}
}

// Seconds returns the override value and whether it is set.
func (d DurationOverride) Seconds() (int, bool) {
	return d.seconds, d.set
}

// Sentinel returns the legacy integer encoding: 0 means no override.
func (d DurationOverride) Sentinel() int {
	if !d.set {
		return 0
	}
	return d.seconds
}

// OverrideFromSentinel decodes the legacy integer encoding.
func OverrideFromSentinel(seconds int) DurationOverride {
	if seconds == 0 {
		return NoOverride()
	}
	return Override(seconds)
}

// PlanNode is one configured phase slot in a workshop's ordered plan.
type PlanNode struct {
	ID          int64
	WorkshopID  int64
	OrderIndex  int
	TaskType    string
	Duration    DurationOverride
	Enabled     bool
	Phase       string // Free-text label shown to the organizer.
	Description string
	ConfigJSON  string // Opaque per-task-type configuration.
}

// TranscriptEntry is persisted facilitator narration attached to a phase.
type TranscriptEntry struct {
	ID            int64
	WorkshopID    int64
	TaskID        int64
	FacilitatorID string
	Text          string
	CreatedAt     time.Time
}

// Idea is a participant submission during a brainstorming phase.
type Idea struct {
	ID         int64
	WorkshopID int64
	TaskID     int64 // The brainstorming Task the idea belongs to.
	AuthorID   string
	Text       string
	CreatedAt  time.Time
}

// Cluster is a group of ideas produced during a clustering/voting phase.
type Cluster struct {
	ID         int64
	WorkshopID int64
	TaskID     int64 // The clustering Task the cluster belongs to.
	Label      string
	IdeaIDs    []int64
	Votes      int
	CreatedAt  time.Time
}
