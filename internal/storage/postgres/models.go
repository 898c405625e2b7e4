package postgres

import (
	"time"
)

// WorkshopModel maps to the "workshops" table.
type WorkshopModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Title     string `gorm:"not null"`
	Flavor    string `gorm:"not null;default:'brainstorm'"`
	CreatorID string `gorm:"index"`
	Status    string `gorm:"not null;index;default:'scheduled'"`

	CurrentTaskID    *int64
	CurrentTaskIndex *int

	TimerStartTime          *time.Time
	TimerPausedAt           *time.Time
	TimerElapsedBeforePause int `gorm:"not null;default:0"`
	PhaseStartedAt          *time.Time

	AutoAdvanceEnabled      bool `gorm:"not null;default:false"`
	AutoAdvanceAfterSeconds int  `gorm:"not null;default:0"`
	AutoStartEnabled        bool `gorm:"not null;default:false"`
	ScheduledStartAt        *time.Time

	PlanJSON string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WorkshopModel) TableName() string { return "workshops" }

// TaskModel maps to the "brainstorm_tasks" table.
type TaskModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	WorkshopID  int64  `gorm:"not null;index"`
	TaskType    string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	Duration    int    `gorm:"not null"`
	Status      string `gorm:"not null;index;default:'pending'"`
	StartedAt   *time.Time
	EndedAt     *time.Time
	PayloadJSON string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TaskModel) TableName() string { return "brainstorm_tasks" }

// PlanNodeModel maps to the "plan_nodes" table.
type PlanNodeModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	WorkshopID  int64  `gorm:"not null;index:idx_plan_nodes_workshop_order,unique,priority:1"`
	OrderIndex  int    `gorm:"not null;index:idx_plan_nodes_workshop_order,unique,priority:2"`
	TaskType    string `gorm:"not null"`
	Duration    int    `gorm:"not null;default:0"` // Legacy sentinel: 0 = no override.
	Enabled     bool   `gorm:"not null;default:true"`
	Phase       string
	Description string
	ConfigJSON  string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PlanNodeModel) TableName() string { return "plan_nodes" }

// TranscriptModel maps to the "transcript_entries" table.
type TranscriptModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	WorkshopID    int64  `gorm:"not null;index"`
	TaskID        int64  `gorm:"not null"`
	FacilitatorID string `gorm:"not null"`
	Text          string `gorm:"type:text;not null"`
	CreatedAt     time.Time
}

func (TranscriptModel) TableName() string { return "transcript_entries" }

// IdeaModel maps to the "brainstorm_ideas" table.
type IdeaModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	WorkshopID int64  `gorm:"not null;index"`
	TaskID     int64  `gorm:"not null;index"`
	AuthorID   string `gorm:"not null"`
	Text       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
}

func (IdeaModel) TableName() string { return "brainstorm_ideas" }

// ClusterModel maps to the "idea_clusters" table.
type ClusterModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	WorkshopID int64  `gorm:"not null;index"`
	TaskID     int64  `gorm:"not null;index"`
	Label      string `gorm:"not null"`
	IdeaIDs    string `gorm:"type:text"` // JSON-encoded []int64.
	Votes      int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

func (ClusterModel) TableName() string { return "idea_clusters" }
