// Package storage defines the unified Store interface that abstracts all
// persistence operations. Three backends are provided: in-memory (tests and
// ephemeral runs), SQLite (zero-config single node), and PostgreSQL
// (production).
package storage

import (
	"context"

	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Store is the unified persistence interface. Sub-store accessors return
// domain-specific interfaces sharing the same underlying connection.
type Store interface {
	Workshops() workshop.WorkshopStore
	Tasks() workshop.TaskStore
	PlanNodes() workshop.PlanNodeStore
	Transcripts() workshop.TranscriptStore
	Ideas() workshop.IdeaStore
	Clusters() workshop.ClusterStore

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Driver returns the backend name ("memory", "sqlite", "postgres").
	Driver() string
}

// Driver names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures the backend.
type Config struct {
	Driver   string         `json:"driver" yaml:"driver"` // Default: sqlite.
	SQLite   SQLiteConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	JournalMode string `json:"journal_mode,omitempty" yaml:"journal_mode,omitempty"` // "wal" (default).
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`
	MaxOpenConns     int    `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`           // Default: 25.
	MaxIdleConns     int    `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`           // Default: 5.
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s,omitempty" yaml:"conn_max_lifetime_s,omitempty"` // Default: 1800.
	WaitForReadyS    int    `json:"wait_for_ready_s,omitempty" yaml:"wait_for_ready_s,omitempty"`       // Startup probe budget. Default: 30.
}
