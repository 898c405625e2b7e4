// Package sqlite implements the unified Store interface using SQLite via
// GORM. Uses modernc.org/sqlite (pure Go, no CGO) through the
// glebarez/sqlite GORM driver, and reuses the PostgreSQL repositories
// since all their SQL is portable.
package sqlite

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/broadcomms/brainstormx/internal/storage"
	pgstore "github.com/broadcomms/brainstormx/internal/storage/postgres"
)

// slogAdapter wraps *slog.Logger for GORM's logger.Writer interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Printf(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// Open creates a SQLite-backed store. WAL mode is on by default so timer
// reads do not block phase-transition writes.
func Open(cfg storage.SQLiteConfig, slogger *slog.Logger) (*pgstore.Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	journalMode := cfg.JournalMode
	if journalMode == "" {
		journalMode = "wal"
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path, journalMode)

	gormLogger := logger.New(
		slogAdapter{slogger},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	slogger.Info("sqlite store opened",
		slog.String("path", cfg.Path),
		slog.String("journal_mode", journalMode),
	)
	return pgstore.NewStore(db, slogger, storage.DriverSQLite), nil
}
