// Package scheduler runs the background sweep for live workshops: phases
// whose timer has expired are advanced through the same orchestrator entry
// point the HTTP API uses, end-of-plan workshops are completed, and
// scheduled workshops with auto-start enabled are started when their time
// arrives.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/broadcomms/brainstormx/internal/orchestrator"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Config holds sweep settings.
type Config struct {
	// SweepEvery is a cron spec for the sweep cadence, e.g. "@every 5s".
	SweepEvery string `json:"sweep_every,omitempty" yaml:"sweep_every,omitempty"`
}

func (c Config) sweepSpec() string {
	if c.SweepEvery != "" {
		return c.SweepEvery
	}
	return "@every 5s"
}

// Sweeper is the background scheduler.
type Sweeper struct {
	workshops workshop.WorkshopStore
	tasks     workshop.TaskStore
	orch      *orchestrator.Orchestrator
	metrics   *Metrics
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	cron *cron.Cron
}

// New creates a sweeper. metrics may be nil.
func New(
	workshops workshop.WorkshopStore,
	tasks workshop.TaskStore,
	orch *orchestrator.Orchestrator,
	metrics *Metrics,
	logger *slog.Logger,
	cfg Config,
) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{
		workshops: workshops,
		tasks:     tasks,
		orch:      orch,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Tests use it to pin the clock.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start schedules the sweep and returns a stop function that waits for any
// in-flight sweep to finish.
func (s *Sweeper) Start(ctx context.Context) (func(), error) {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.sweepSpec(), func() { s.Sweep(ctx) })
	if err != nil {
		return nil, fmt.Errorf("scheduling sweep %q: %w", s.cfg.sweepSpec(), err)
	}
	s.cron.Start()
	s.logger.Info("workshop sweeper started", slog.String("cadence", s.cfg.sweepSpec()))

	return func() {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.logger.Info("workshop sweeper stopped")
	}, nil
}

// Sweep runs one pass over the active workshops. Exported so tests and
// operational tooling can trigger a pass directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	active, err := s.workshops.ListActive(ctx)
	if err != nil {
		s.logger.Error("sweep failed to list active workshops", slog.String("error", err.Error()))
		return
	}
	if s.metrics != nil {
		s.metrics.SweepsTotal.Inc()
	}

	for i := range active {
		ws := &active[i]
		switch {
		case ws.Status == workshop.StatusScheduled:
			s.maybeAutoStart(ctx, ws, now)
		case ws.Status == workshop.StatusInProgress && ws.AutoAdvanceEnabled:
			s.maybeAutoAdvance(ctx, ws, now)
		}
	}
}

func (s *Sweeper) maybeAutoStart(ctx context.Context, ws *workshop.Workshop, now time.Time) {
	if !ws.AutoStartEnabled || ws.ScheduledStartAt == nil || now.Before(*ws.ScheduledStartAt) {
		return
	}
	if _, err := s.orch.Start(ctx, ws.ID); err != nil {
		s.logger.Warn("auto-start failed",
			slog.Int64("workshop_id", ws.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.AutoStartsTotal.Inc()
	}
	s.logger.Info("workshop auto-started", slog.Int64("workshop_id", ws.ID))
}

func (s *Sweeper) maybeAutoAdvance(ctx context.Context, ws *workshop.Workshop, now time.Time) {
	if ws.CurrentTaskID == nil {
		return
	}
	task, err := s.tasks.Get(ctx, *ws.CurrentTaskID)
	if err != nil {
		s.logger.Warn("sweep could not load current task",
			slog.Int64("workshop_id", ws.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !overdue(ws, task, now) {
		return
	}

	_, err = s.orch.AdvanceToNext(ctx, ws.ID)
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.AutoAdvancesTotal.Inc()
		}
		s.logger.Info("phase auto-advanced", slog.Int64("workshop_id", ws.ID))
	case errors.Is(err, orchestrator.ErrEndOfPlan):
		if err := s.orch.Complete(ctx, ws.ID); err != nil {
			s.logger.Warn("failed to complete finished workshop",
				slog.Int64("workshop_id", ws.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		if s.metrics != nil {
			s.metrics.CompletionsTotal.Inc()
		}
		s.logger.Info("workshop completed by sweeper", slog.Int64("workshop_id", ws.ID))
	case errors.Is(err, workshop.ErrConflict):
		// Another caller advanced first; nothing to do.
		s.logger.Debug("sweep lost advancement race", slog.Int64("workshop_id", ws.ID))
	default:
		s.logger.Warn("auto-advance failed",
			slog.Int64("workshop_id", ws.ID),
			slog.String("error", err.Error()),
		)
	}
}

// overdue reports whether the phase has run past its duration plus the
// workshop's grace window. Unlike Remaining this measures overshoot, so the
// clamp to zero does not hide how long past expiry the phase is.
func overdue(ws *workshop.Workshop, task *workshop.Task, now time.Time) bool {
	elapsed := ws.TimerElapsedBeforePause
	if ws.TimerStartTime != nil {
		elapsed += int(now.Sub(*ws.TimerStartTime).Seconds())
	}
	return elapsed >= task.Duration+ws.AutoAdvanceAfterSeconds
}
