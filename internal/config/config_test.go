package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/broadcomms/brainstormx/internal/storage"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Storage.Driver != storage.DriverSQLite {
		t.Errorf("default driver = %q", cfg.Storage.Driver)
	}
	if cfg.Scheduler == nil {
		t.Error("sweeper disabled by default")
	}
	if cfg.Server.ListenAddr() != ":8080" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr())
	}
	if cfg.Server.ReadTimeout() != 30*time.Second || cfg.Server.WriteTimeout() != 60*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout())
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("BRAINSTORMX_DB_DSN", "")
	t.Setenv("BRAINSTORMX_WS_TOKEN", "")
	path := writeConfig(t, "config.yaml", `
server:
  addr: ":9090"
  write_timeout_s: 120
storage:
  driver: sqlite
  sqlite:
    path: /tmp/bx.db
broadcast:
  ws:
    token: join-me
scheduler:
  sweep_every: "@every 10s"
observability:
  metrics:
    enabled: true
    path: /internal/metrics
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr() != ":9090" {
		t.Errorf("addr = %q", cfg.Server.ListenAddr())
	}
	if cfg.Server.WriteTimeout() != 120*time.Second {
		t.Errorf("write timeout = %v", cfg.Server.WriteTimeout())
	}
	if cfg.Storage.SQLite.Path != "/tmp/bx.db" {
		t.Errorf("sqlite path = %q", cfg.Storage.SQLite.Path)
	}
	if cfg.Broadcast.WS.Token != "join-me" {
		t.Errorf("ws token = %q", cfg.Broadcast.WS.Token)
	}
	if cfg.Scheduler == nil || cfg.Scheduler.SweepEvery != "@every 10s" {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Observability == nil || cfg.Observability.Metrics.MetricsPath() != "/internal/metrics" {
		t.Error("metrics config not parsed")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Setenv("BRAINSTORMX_DB_DSN", "")
	path := writeConfig(t, "config.json", `{
		"storage": {"driver": "memory"},
		"llm": {"provider": "anthropic", "model": "claude-sonnet-4-5"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != storage.DriverMemory {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.LLM == nil || cfg.LLM.Model != "claude-sonnet-4-5" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BRAINSTORMX_DB_DSN", "postgres://u:p@db:5432/bx")
	t.Setenv("BRAINSTORMX_WS_TOKEN", "from-env")
	t.Setenv("BRAINSTORMX_NATS_URL", "nats://broker:4222")

	path := writeConfig(t, "config.yaml", `
storage:
  driver: sqlite
broadcast:
  ws:
    token: from-file
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != storage.DriverPostgres {
		t.Errorf("env DSN did not force postgres: %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Postgres.DSN != "postgres://u:p@db:5432/bx" {
		t.Errorf("dsn = %q", cfg.Storage.Postgres.DSN)
	}
	if cfg.Broadcast.WS.Token != "from-env" {
		t.Errorf("token = %q", cfg.Broadcast.WS.Token)
	}
	if cfg.Broadcast.NATS == nil || cfg.Broadcast.NATS.URL != "nats://broker:4222" {
		t.Errorf("nats = %+v", cfg.Broadcast.NATS)
	}
}

func TestAPIKeyEnvCreatesLLMConfig(t *testing.T) {
	t.Setenv("BRAINSTORMX_DB_DSN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.LLM == nil || cfg.LLM.Provider != "anthropic" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
}

func TestValidateRejections(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = storage.DriverPostgres
	cfg.Storage.Postgres.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("postgres without DSN accepted")
	}

	cfg = Default()
	cfg.Storage.Driver = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver accepted")
	}

	cfg = Default()
	cfg.LLM = &LLMConfig{Provider: "bard"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown llm provider accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
