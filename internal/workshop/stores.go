package workshop

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by WorkshopStore.UpdateGuarded when the persisted
// workshop state no longer matches the caller's expectation. A second
// concurrent phase transition detects the first one through this error and
// fails gracefully instead of double-advancing.
var ErrConflict = errors.New("workshop state changed concurrently")

// WorkshopStore persists workshops.
type WorkshopStore interface {
	Create(ctx context.Context, ws *Workshop) error
	Get(ctx context.Context, id int64) (*Workshop, error)
	Update(ctx context.Context, ws *Workshop) error

	// UpdateGuarded persists ws only if, re-read under the store's
	// transaction/locking boundary, the workshop still has one of the
	// allowed statuses and its CurrentTaskID equals expectTaskID.
	// Returns ErrConflict otherwise.
	UpdateGuarded(ctx context.Context, ws *Workshop, expectTaskID *int64, allowed ...Status) error

	// ListActive returns workshops the background sweeper cares about:
	// inprogress workshops and scheduled ones with auto-start enabled.
	ListActive(ctx context.Context) ([]Workshop, error)
}

// TaskStore persists phase tasks. Content providers create rows; the
// orchestrator reads them back by id and updates their lifecycle.
type TaskStore interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id int64) (*Task, error)
	Update(ctx context.Context, task *Task) error

	// Running returns the single running task for a workshop, or
	// ErrNotFound when no phase is active.
	Running(ctx context.Context, workshopID int64) (*Task, error)

	// LatestByType returns the most recent task of the given type for a
	// workshop: latest by start time, falling back to creation order.
	// ErrNotFound when none exists.
	LatestByType(ctx context.Context, workshopID int64, taskType string) (*Task, error)

	ListByWorkshop(ctx context.Context, workshopID int64) ([]Task, error)
}

// PlanNodeStore persists the ordered plan rows for a workshop.
type PlanNodeStore interface {
	ListByWorkshop(ctx context.Context, workshopID int64) ([]PlanNode, error)

	// ReplaceAll atomically replaces every plan node for the workshop with
	// the given list (OrderIndex = list position). A failed replace must
	// not leave the workshop with zero plan nodes.
	ReplaceAll(ctx context.Context, workshopID int64, nodes []PlanNode) error
}

// TranscriptStore persists facilitator narration.
type TranscriptStore interface {
	// SaveNarration stores an entry unless an identical one (same
	// workshop, facilitator, and exact text) already exists.
	SaveNarration(ctx context.Context, entry *TranscriptEntry) error

	ListByWorkshop(ctx context.Context, workshopID int64) ([]TranscriptEntry, error)
}

// IdeaStore persists participant idea submissions.
type IdeaStore interface {
	Create(ctx context.Context, idea *Idea) error
	ListByTask(ctx context.Context, taskID int64) ([]Idea, error)
}

// ClusterStore persists idea clusters and their vote tallies.
type ClusterStore interface {
	Create(ctx context.Context, cluster *Cluster) error
	ListByTask(ctx context.Context, taskID int64) ([]Cluster, error)
	AddVote(ctx context.Context, clusterID int64) error
}
