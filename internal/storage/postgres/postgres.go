// Package postgres implements PostgreSQL-backed storage using GORM.
// All GORM usage is confined to this package; domain types remain ORM-free.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" database/sql driver.
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/broadcomms/brainstormx/internal/storage"
)

func maxOpen(cfg storage.PostgresConfig) int {
	if cfg.MaxOpenConns > 0 {
		return cfg.MaxOpenConns
	}
	return 25
}

func maxIdle(cfg storage.PostgresConfig) int {
	if cfg.MaxIdleConns > 0 {
		return cfg.MaxIdleConns
	}
	return 5
}

func maxLifetime(cfg storage.PostgresConfig) time.Duration {
	if cfg.ConnMaxLifetimeS > 0 {
		return time.Duration(cfg.ConnMaxLifetimeS) * time.Second
	}
	return 30 * time.Minute
}

func readyBudget(cfg storage.PostgresConfig) time.Duration {
	if cfg.WaitForReadyS > 0 {
		return time.Duration(cfg.WaitForReadyS) * time.Second
	}
	return 30 * time.Second
}

// waitForReady probes the database through the pgx stdlib driver until it
// answers or the budget runs out. Keeps container orchestration races out
// of the GORM open path.
func waitForReady(ctx context.Context, cfg storage.PostgresConfig, slogger *slog.Logger) error {
	probe, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("opening readiness probe: %w", err)
	}
	defer probe.Close()

	deadline := time.Now().Add(readyBudget(cfg))
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = probe.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready after %s: %w", readyBudget(cfg), err)
		}
		slogger.Debug("waiting for database", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// slogAdapter wraps *slog.Logger for GORM's logger.Writer interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Printf(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// Open connects to PostgreSQL, configures the pool, and returns the unified
// store. Migrate must be called before first use.
func Open(ctx context.Context, cfg storage.PostgresConfig, slogger *slog.Logger) (*Store, error) {
	if err := waitForReady(ctx, cfg, slogger); err != nil {
		return nil, err
	}

	gormLogger := logger.New(
		slogAdapter{slogger},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      gormLogger,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen(cfg))
	sqlDB.SetMaxIdleConns(maxIdle(cfg))
	sqlDB.SetConnMaxLifetime(maxLifetime(cfg))

	slogger.Info("postgres connected",
		slog.Int("max_open_conns", maxOpen(cfg)),
		slog.Int("max_idle_conns", maxIdle(cfg)),
	)

	return NewStore(db, slogger, storage.DriverPostgres), nil
}
