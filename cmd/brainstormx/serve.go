package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/broadcomms/brainstormx/internal/broadcast"
	"github.com/broadcomms/brainstormx/internal/broadcast/natsbus"
	"github.com/broadcomms/brainstormx/internal/broadcast/ws"
	"github.com/broadcomms/brainstormx/internal/config"
	"github.com/broadcomms/brainstormx/internal/gateway/httpapi"
	"github.com/broadcomms/brainstormx/internal/llm"
	"github.com/broadcomms/brainstormx/internal/llm/anthropic"
	"github.com/broadcomms/brainstormx/internal/llm/openai"
	"github.com/broadcomms/brainstormx/internal/observability"
	"github.com/broadcomms/brainstormx/internal/orchestrator"
	"github.com/broadcomms/brainstormx/internal/plan"
	"github.com/broadcomms/brainstormx/internal/provider"
	"github.com/broadcomms/brainstormx/internal/scheduler"
	"github.com/broadcomms/brainstormx/internal/storage"
	"github.com/broadcomms/brainstormx/internal/storage/memory"
	pgstore "github.com/broadcomms/brainstormx/internal/storage/postgres"
	sqlitestore "github.com/broadcomms/brainstormx/internal/storage/sqlite"
)

var (
	serveConfigPath string
	serveAddr       string
	enableDocs      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workshop orchestration server",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `brainstormx --config path` and `brainstormx serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config file (YAML or JSON)")
		cmd.Flags().StringVar(&serveAddr, "addr", "", "override HTTP listen address (e.g. :8080)")
		cmd.Flags().BoolVar(&enableDocs, "docs", false, "serve OpenAPI docs")
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(goutils.Env("BRAINSTORMX_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating storage: %w", err)
	}
	logger.Info("storage ready", slog.String("driver", store.Driver()))

	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return err
	}
	defer obs.Shutdown(context.Background())

	health := observability.NewHealthChecker(logger)
	if obs != nil {
		health = obs.Health
	}
	health.AddCheck("storage", store.Ping)

	// Realtime delivery: local WebSocket hub plus the optional NATS bridge.
	hub := ws.NewHub(ws.Config{Token: cfg.Broadcast.WS.Token}, logger)
	broadcasters := broadcast.Multi{hub}
	if cfg.Broadcast.NATS != nil {
		bus, err := natsbus.Connect(cfg.Broadcast.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("connecting NATS: %w", err)
		}
		defer bus.Close()
		broadcasters = append(broadcasters, bus)
	}

	model, err := buildModel(cfg.LLM, logger)
	if err != nil {
		return err
	}
	providers, err := provider.Builtin(store.Tasks(), store.Ideas(), store.Clusters(), model, logger)
	if err != nil {
		return err
	}

	plans := plan.NewStore(store.PlanNodes(), store.Workshops(), logger)

	var orchMetrics *orchestrator.Metrics
	var sweepMetrics *scheduler.Metrics
	if obs != nil && obs.Metrics != nil {
		orchMetrics = orchestrator.NewMetrics(obs.Metrics.Registry)
		sweepMetrics = scheduler.NewMetrics(obs.Metrics.Registry)
	}

	orch := orchestrator.New(
		store.Workshops(),
		store.Tasks(),
		store.Transcripts(),
		plans,
		providers,
		broadcasters,
		orchMetrics,
		logger,
	)

	if cfg.Scheduler != nil {
		sweeper := scheduler.New(
			store.Workshops(),
			store.Tasks(),
			orch,
			sweepMetrics,
			logger,
			scheduler.Config{SweepEvery: cfg.Scheduler.SweepEvery},
		)
		stopSweeper, err := sweeper.Start(ctx)
		if err != nil {
			return fmt.Errorf("starting sweeper: %w", err)
		}
		defer stopSweeper()
	}

	gwCfg := httpapi.Config{
		ListenAddr:    cfg.Server.ListenAddr(),
		EnableDocs:    enableDocs,
		ReadTimeout:   cfg.Server.ReadTimeout(),
		WriteTimeout:  cfg.Server.WriteTimeout(),
		HealthChecker: health,
	}
	if obs != nil && obs.Metrics != nil {
		gwCfg.MetricsRegistry = obs.Metrics.Registry
		gwCfg.MetricsPath = cfg.Observability.Metrics.MetricsPath()
		gwCfg.Metrics = obs.Metrics
	}
	if obs != nil && obs.Tracer != nil {
		gwCfg.Tracer = obs.Tracer.Tracer()
	}

	gw := httpapi.NewGateway(gwCfg, store, plans, orch, logger).
		WithHandler("/ws", hub.Handler())

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http gateway: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return gw.Stop(shutdownCtx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case storage.DriverMemory:
		return memory.New(), nil
	case storage.DriverPostgres:
		return pgstore.Open(ctx, cfg.Storage.Postgres, logger)
	case storage.DriverSQLite, "":
		return sqlitestore.Open(cfg.Storage.SQLite, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func buildModel(cfg *config.LLMConfig, logger *slog.Logger) (llm.Provider, error) {
	if cfg == nil {
		return nil, nil
	}
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.NewClient(cfg.APIKey, cfg.Model, logger, opts...), nil
	case "anthropic":
		opts := []anthropic.Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.NewClient(cfg.APIKey, cfg.Model, logger, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
