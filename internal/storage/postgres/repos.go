package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/broadcomms/brainstormx/internal/workshop"
)

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workshop.ErrNotFound
	}
	return err
}

// --- WorkshopRepository ---

// WorkshopRepository implements workshop.WorkshopStore.
type WorkshopRepository struct {
	db *gorm.DB
}

// NewWorkshopRepository creates a WorkshopRepository.
func NewWorkshopRepository(db *gorm.DB) *WorkshopRepository {
	return &WorkshopRepository{db: db}
}

func (r *WorkshopRepository) Create(ctx context.Context, ws *workshop.Workshop) error {
	model := toWorkshopModel(ws)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating workshop: %w", err)
	}
	ws.ID = model.ID
	ws.CreatedAt = model.CreatedAt
	ws.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *WorkshopRepository) Get(ctx context.Context, id int64) (*workshop.Workshop, error) {
	var model WorkshopModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("getting workshop %d: %w", id, translateNotFound(err))
	}
	return toWorkshopDomain(&model), nil
}

func (r *WorkshopRepository) Update(ctx context.Context, ws *workshop.Workshop) error {
	model := toWorkshopModel(ws)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("updating workshop %d: %w", ws.ID, err)
	}
	return nil
}

// UpdateGuarded re-reads the workshop row under SELECT FOR UPDATE and only
// persists when the live state still matches the caller's expectation. This
// is the mutual-exclusion backstop for concurrent phase transitions.
func (r *WorkshopRepository) UpdateGuarded(ctx context.Context, ws *workshop.Workshop, expectTaskID *int64, allowed ...workshop.Status) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current WorkshopModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", ws.ID).Error; err != nil {
			return translateNotFound(err)
		}

		if !int64PtrEqual(current.CurrentTaskID, expectTaskID) {
			return workshop.ErrConflict
		}
		statusOK := len(allowed) == 0
		for _, st := range allowed {
			if current.Status == string(st) {
				statusOK = true
				break
			}
		}
		if !statusOK {
			return workshop.ErrConflict
		}

		model := toWorkshopModel(ws)
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("persisting guarded update: %w", err)
		}
		return nil
	})
}

func (r *WorkshopRepository) ListActive(ctx context.Context) ([]workshop.Workshop, error) {
	var models []WorkshopModel
	if err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND auto_start_enabled)", workshop.StatusInProgress, workshop.StatusScheduled).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing active workshops: %w", err)
	}
	out := make([]workshop.Workshop, len(models))
	for i := range models {
		out[i] = *toWorkshopDomain(&models[i])
	}
	return out, nil
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// --- TaskRepository ---

// TaskRepository implements workshop.TaskStore.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *workshop.Task) error {
	model := toTaskModel(task)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	task.ID = model.ID
	task.CreatedAt = model.CreatedAt
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*workshop.Task, error) {
	var model TaskModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, translateNotFound(err))
	}
	return toTaskDomain(&model), nil
}

func (r *TaskRepository) Update(ctx context.Context, task *workshop.Task) error {
	model := toTaskModel(task)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("updating task %d: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) Running(ctx context.Context, workshopID int64) (*workshop.Task, error) {
	var model TaskModel
	err := r.db.WithContext(ctx).
		Where("workshop_id = ? AND status = ?", workshopID, workshop.TaskRunning).
		First(&model).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return toTaskDomain(&model), nil
}

func (r *TaskRepository) LatestByType(ctx context.Context, workshopID int64, taskType string) (*workshop.Task, error) {
	var model TaskModel
	// Latest by start time, falling back to creation order; the boolean
	// sort keeps never-started rows behind started ones on both backends.
	err := r.db.WithContext(ctx).
		Where("workshop_id = ? AND task_type = ?", workshopID, taskType).
		Order("(started_at IS NULL) ASC").
		Order("started_at DESC").
		Order("id DESC").
		First(&model).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return toTaskDomain(&model), nil
}

func (r *TaskRepository) ListByWorkshop(ctx context.Context, workshopID int64) ([]workshop.Task, error) {
	var models []TaskModel
	if err := r.db.WithContext(ctx).
		Where("workshop_id = ?", workshopID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing tasks for workshop %d: %w", workshopID, err)
	}
	out := make([]workshop.Task, len(models))
	for i := range models {
		out[i] = *toTaskDomain(&models[i])
	}
	return out, nil
}

// --- PlanNodeRepository ---

// PlanNodeRepository implements workshop.PlanNodeStore.
type PlanNodeRepository struct {
	db *gorm.DB
}

// NewPlanNodeRepository creates a PlanNodeRepository.
func NewPlanNodeRepository(db *gorm.DB) *PlanNodeRepository {
	return &PlanNodeRepository{db: db}
}

func (r *PlanNodeRepository) ListByWorkshop(ctx context.Context, workshopID int64) ([]workshop.PlanNode, error) {
	var models []PlanNodeModel
	if err := r.db.WithContext(ctx).
		Where("workshop_id = ?", workshopID).
		Order("order_index ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing plan nodes for workshop %d: %w", workshopID, err)
	}
	out := make([]workshop.PlanNode, len(models))
	for i := range models {
		out[i] = toPlanNodeDomain(&models[i])
	}
	return out, nil
}

// ReplaceAll swaps the workshop's plan in one transaction so a failed write
// can never leave the workshop with zero plan nodes.
func (r *PlanNodeRepository) ReplaceAll(ctx context.Context, workshopID int64, nodes []workshop.PlanNode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workshop_id = ?", workshopID).Delete(&PlanNodeModel{}).Error; err != nil {
			return fmt.Errorf("clearing plan for workshop %d: %w", workshopID, err)
		}
		for i := range nodes {
			nodes[i].WorkshopID = workshopID
			nodes[i].OrderIndex = i
			model := toPlanNodeModel(&nodes[i])
			model.ID = 0 // Always fresh rows.
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("inserting plan node %d for workshop %d: %w", i, workshopID, err)
			}
			nodes[i].ID = model.ID
		}
		return nil
	})
}

// --- TranscriptRepository ---

// TranscriptRepository implements workshop.TranscriptStore.
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a TranscriptRepository.
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) SaveNarration(ctx context.Context, entry *workshop.TranscriptEntry) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&TranscriptModel{}).
		Where("workshop_id = ? AND facilitator_id = ? AND text = ?",
			entry.WorkshopID, entry.FacilitatorID, entry.Text).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking transcript duplicates: %w", err)
	}
	if count > 0 {
		return nil // Exact duplicate; keep the first.
	}

	model := TranscriptModel{
		WorkshopID:    entry.WorkshopID,
		TaskID:        entry.TaskID,
		FacilitatorID: entry.FacilitatorID,
		Text:          entry.Text,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating transcript entry: %w", err)
	}
	entry.ID = model.ID
	entry.CreatedAt = model.CreatedAt
	return nil
}

func (r *TranscriptRepository) ListByWorkshop(ctx context.Context, workshopID int64) ([]workshop.TranscriptEntry, error) {
	var models []TranscriptModel
	if err := r.db.WithContext(ctx).
		Where("workshop_id = ?", workshopID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing transcript for workshop %d: %w", workshopID, err)
	}
	out := make([]workshop.TranscriptEntry, len(models))
	for i, m := range models {
		out[i] = workshop.TranscriptEntry{
			ID:            m.ID,
			WorkshopID:    m.WorkshopID,
			TaskID:        m.TaskID,
			FacilitatorID: m.FacilitatorID,
			Text:          m.Text,
			CreatedAt:     m.CreatedAt,
		}
	}
	return out, nil
}

// --- IdeaRepository ---

// IdeaRepository implements workshop.IdeaStore.
type IdeaRepository struct {
	db *gorm.DB
}

// NewIdeaRepository creates an IdeaRepository.
func NewIdeaRepository(db *gorm.DB) *IdeaRepository {
	return &IdeaRepository{db: db}
}

func (r *IdeaRepository) Create(ctx context.Context, idea *workshop.Idea) error {
	model := IdeaModel{
		WorkshopID: idea.WorkshopID,
		TaskID:     idea.TaskID,
		AuthorID:   idea.AuthorID,
		Text:       idea.Text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating idea: %w", err)
	}
	idea.ID = model.ID
	idea.CreatedAt = model.CreatedAt
	return nil
}

func (r *IdeaRepository) ListByTask(ctx context.Context, taskID int64) ([]workshop.Idea, error) {
	var models []IdeaModel
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing ideas for task %d: %w", taskID, err)
	}
	out := make([]workshop.Idea, len(models))
	for i, m := range models {
		out[i] = workshop.Idea{
			ID:         m.ID,
			WorkshopID: m.WorkshopID,
			TaskID:     m.TaskID,
			AuthorID:   m.AuthorID,
			Text:       m.Text,
			CreatedAt:  m.CreatedAt,
		}
	}
	return out, nil
}

// --- ClusterRepository ---

// ClusterRepository implements workshop.ClusterStore.
type ClusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a ClusterRepository.
func NewClusterRepository(db *gorm.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

func (r *ClusterRepository) Create(ctx context.Context, cluster *workshop.Cluster) error {
	model, err := toClusterModel(cluster)
	if err != nil {
		return fmt.Errorf("encoding cluster: %w", err)
	}
	model.CreatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating cluster: %w", err)
	}
	cluster.ID = model.ID
	cluster.CreatedAt = model.CreatedAt
	return nil
}

func (r *ClusterRepository) ListByTask(ctx context.Context, taskID int64) ([]workshop.Cluster, error) {
	var models []ClusterModel
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing clusters for task %d: %w", taskID, err)
	}
	out := make([]workshop.Cluster, len(models))
	for i := range models {
		out[i] = toClusterDomain(&models[i])
	}
	return out, nil
}

func (r *ClusterRepository) AddVote(ctx context.Context, clusterID int64) error {
	res := r.db.WithContext(ctx).Model(&ClusterModel{}).
		Where("id = ?", clusterID).
		UpdateColumn("votes", gorm.Expr("votes + 1"))
	if res.Error != nil {
		return fmt.Errorf("adding vote to cluster %d: %w", clusterID, res.Error)
	}
	if res.RowsAffected == 0 {
		return workshop.ErrNotFound
	}
	return nil
}
