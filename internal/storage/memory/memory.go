// Package memory implements the unified Store interface with in-memory
// maps. Used by tests and ephemeral single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/broadcomms/brainstormx/internal/storage"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Store implements storage.Store backed by maps. All sub-stores share one
// mutex; copies go in and out so callers never alias internal state.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	workshops   map[int64]*workshop.Workshop
	tasks       map[int64]*workshop.Task
	planNodes   map[int64][]workshop.PlanNode // workshopID -> ordered nodes
	transcripts map[int64][]workshop.TranscriptEntry
	ideas       map[int64]*workshop.Idea
	clusters    map[int64]*workshop.Cluster
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		workshops:   make(map[int64]*workshop.Workshop),
		tasks:       make(map[int64]*workshop.Task),
		planNodes:   make(map[int64][]workshop.PlanNode),
		transcripts: make(map[int64][]workshop.TranscriptEntry),
		ideas:       make(map[int64]*workshop.Idea),
		clusters:    make(map[int64]*workshop.Cluster),
	}
}

func (s *Store) Workshops() workshop.WorkshopStore     { return (*workshopStore)(s) }
func (s *Store) Tasks() workshop.TaskStore             { return (*taskStore)(s) }
func (s *Store) PlanNodes() workshop.PlanNodeStore     { return (*planNodeStore)(s) }
func (s *Store) Transcripts() workshop.TranscriptStore { return (*transcriptStore)(s) }
func (s *Store) Ideas() workshop.IdeaStore             { return (*ideaStore)(s) }
func (s *Store) Clusters() workshop.ClusterStore       { return (*clusterStore)(s) }

func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Ping(context.Context) error    { return nil }
func (s *Store) Close() error                  { return nil }
func (s *Store) Driver() string                { return storage.DriverMemory }

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// --- WorkshopStore ---

type workshopStore Store

func (s *workshopStore) Create(_ context.Context, ws *workshop.Workshop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws.ID == 0 {
		ws.ID = (*Store)(s).allocID()
	}
	ws.CreatedAt = time.Now().UTC()
	ws.UpdatedAt = ws.CreatedAt
	cp := *ws
	s.workshops[ws.ID] = &cp
	return nil
}

func (s *workshopStore) Get(_ context.Context, id int64) (*workshop.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workshops[id]
	if !ok {
		return nil, workshop.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *workshopStore) Update(_ context.Context, ws *workshop.Workshop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workshops[ws.ID]; !ok {
		return workshop.ErrNotFound
	}
	ws.UpdatedAt = time.Now().UTC()
	cp := *ws
	s.workshops[ws.ID] = &cp
	return nil
}

func (s *workshopStore) UpdateGuarded(_ context.Context, ws *workshop.Workshop, expectTaskID *int64, allowed ...workshop.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.workshops[ws.ID]
	if !ok {
		return workshop.ErrNotFound
	}
	if !int64PtrEqual(current.CurrentTaskID, expectTaskID) {
		return workshop.ErrConflict
	}
	statusOK := len(allowed) == 0
	for _, st := range allowed {
		if current.Status == st {
			statusOK = true
			break
		}
	}
	if !statusOK {
		return workshop.ErrConflict
	}
	ws.UpdatedAt = time.Now().UTC()
	cp := *ws
	s.workshops[ws.ID] = &cp
	return nil
}

func (s *workshopStore) ListActive(_ context.Context) ([]workshop.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workshop.Workshop
	for _, ws := range s.workshops {
		if ws.Status == workshop.StatusInProgress ||
			(ws.Status == workshop.StatusScheduled && ws.AutoStartEnabled) {
			out = append(out, *ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// --- TaskStore ---

type taskStore Store

func (s *taskStore) Create(_ context.Context, task *workshop.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == 0 {
		task.ID = (*Store)(s).allocID()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *taskStore) Get(_ context.Context, id int64) (*workshop.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, workshop.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *taskStore) Update(_ context.Context, task *workshop.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return workshop.ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *taskStore) Running(_ context.Context, workshopID int64) (*workshop.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.WorkshopID == workshopID && task.Status == workshop.TaskRunning {
			cp := *task
			return &cp, nil
		}
	}
	return nil, workshop.ErrNotFound
}

func (s *taskStore) LatestByType(_ context.Context, workshopID int64, taskType string) (*workshop.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *workshop.Task
	for _, task := range s.tasks {
		if task.WorkshopID != workshopID || task.TaskType != taskType {
			continue
		}
		if latest == nil || taskAfter(task, latest) {
			latest = task
		}
	}
	if latest == nil {
		return nil, workshop.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// taskAfter orders by start time, falling back to creation order.
func taskAfter(a, b *workshop.Task) bool {
	switch {
	case a.StartedAt != nil && b.StartedAt != nil:
		if !a.StartedAt.Equal(*b.StartedAt) {
			return a.StartedAt.After(*b.StartedAt)
		}
	case a.StartedAt != nil:
		return true
	case b.StartedAt != nil:
		return false
	}
	return a.ID > b.ID
}

func (s *taskStore) ListByWorkshop(_ context.Context, workshopID int64) ([]workshop.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workshop.Task
	for _, task := range s.tasks {
		if task.WorkshopID == workshopID {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- PlanNodeStore ---

type planNodeStore Store

func (s *planNodeStore) ListByWorkshop(_ context.Context, workshopID int64) ([]workshop.PlanNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := s.planNodes[workshopID]
	out := make([]workshop.PlanNode, len(nodes))
	copy(out, nodes)
	return out, nil
}

func (s *planNodeStore) ReplaceAll(_ context.Context, workshopID int64, nodes []workshop.PlanNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replacement := make([]workshop.PlanNode, len(nodes))
	for i, n := range nodes {
		if n.ID == 0 {
			n.ID = (*Store)(s).allocID()
		}
		n.WorkshopID = workshopID
		n.OrderIndex = i
		replacement[i] = n
	}
	s.planNodes[workshopID] = replacement
	return nil
}

// --- TranscriptStore ---

type transcriptStore Store

func (s *transcriptStore) SaveNarration(_ context.Context, entry *workshop.TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transcripts[entry.WorkshopID] {
		if existing.FacilitatorID == entry.FacilitatorID && existing.Text == entry.Text {
			return nil // Exact duplicate; keep the first.
		}
	}
	entry.ID = (*Store)(s).allocID()
	entry.CreatedAt = time.Now().UTC()
	s.transcripts[entry.WorkshopID] = append(s.transcripts[entry.WorkshopID], *entry)
	return nil
}

func (s *transcriptStore) ListByWorkshop(_ context.Context, workshopID int64) ([]workshop.TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.transcripts[workshopID]
	out := make([]workshop.TranscriptEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// --- IdeaStore ---

type ideaStore Store

func (s *ideaStore) Create(_ context.Context, idea *workshop.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idea.ID == 0 {
		idea.ID = (*Store)(s).allocID()
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}
	cp := *idea
	s.ideas[idea.ID] = &cp
	return nil
}

func (s *ideaStore) ListByTask(_ context.Context, taskID int64) ([]workshop.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workshop.Idea
	for _, idea := range s.ideas {
		if idea.TaskID == taskID {
			out = append(out, *idea)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- ClusterStore ---

type clusterStore Store

func (s *clusterStore) Create(_ context.Context, cluster *workshop.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cluster.ID == 0 {
		cluster.ID = (*Store)(s).allocID()
	}
	if cluster.CreatedAt.IsZero() {
		cluster.CreatedAt = time.Now().UTC()
	}
	cp := *cluster
	cp.IdeaIDs = append([]int64(nil), cluster.IdeaIDs...)
	s.clusters[cluster.ID] = &cp
	return nil
}

func (s *clusterStore) ListByTask(_ context.Context, taskID int64) ([]workshop.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workshop.Cluster
	for _, cluster := range s.clusters {
		if cluster.TaskID == taskID {
			cp := *cluster
			cp.IdeaIDs = append([]int64(nil), cluster.IdeaIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *clusterStore) AddVote(_ context.Context, clusterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cluster, ok := s.clusters[clusterID]
	if !ok {
		return workshop.ErrNotFound
	}
	cluster.Votes++
	return nil
}

// Compile-time check.
var _ storage.Store = (*Store)(nil)
