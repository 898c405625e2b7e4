package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/broadcomms/brainstormx/internal/storage"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Store bundles the GORM-backed repositories behind storage.Store. The
// sqlite package reuses it with a different dialector, so nothing in here
// may assume postgres-only SQL.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	driver string

	workshops   *WorkshopRepository
	tasks       *TaskRepository
	planNodes   *PlanNodeRepository
	transcripts *TranscriptRepository
	ideas       *IdeaRepository
	clusters    *ClusterRepository
}

// NewStore wraps an open GORM connection in the unified store.
func NewStore(db *gorm.DB, logger *slog.Logger, driver string) *Store {
	return &Store{
		db:          db,
		logger:      logger,
		driver:      driver,
		workshops:   NewWorkshopRepository(db),
		tasks:       NewTaskRepository(db),
		planNodes:   NewPlanNodeRepository(db),
		transcripts: NewTranscriptRepository(db),
		ideas:       NewIdeaRepository(db),
		clusters:    NewClusterRepository(db),
	}
}

func (s *Store) Workshops() workshop.WorkshopStore     { return s.workshops }
func (s *Store) Tasks() workshop.TaskStore             { return s.tasks }
func (s *Store) PlanNodes() workshop.PlanNodeStore     { return s.planNodes }
func (s *Store) Transcripts() workshop.TranscriptStore { return s.transcripts }
func (s *Store) Ideas() workshop.IdeaStore             { return s.ideas }
func (s *Store) Clusters() workshop.ClusterStore       { return s.clusters }

// Migrate creates or updates the schema for all tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&WorkshopModel{},
		&TaskModel{},
		&PlanNodeModel{},
		&TranscriptModel{},
		&IdeaModel{},
		&ClusterModel{},
	)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	s.logger.Info("database migrated", slog.String("driver", s.driver))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) Driver() string { return s.driver }

// Compile-time check.
var _ storage.Store = (*Store)(nil)
