// Package config handles loading and validating BrainStormX configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/broadcomms/brainstormx/internal/storage"
)

func init() {
	// Load .env file if it exists.
	_ = godotenv.Load()
}

// Config is the root configuration for BrainStormX. Pointer sub-configs are
// optional: nil means the feature is disabled.
type Config struct {
	Server        ServerConfig         `json:"server" yaml:"server"`
	Storage       storage.Config       `json:"storage" yaml:"storage"`
	Broadcast     BroadcastConfig      `json:"broadcast" yaml:"broadcast"`
	Scheduler     *SchedulerConfig     `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`         // nil = sweeper disabled
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
	LLM           *LLMConfig           `json:"llm,omitempty" yaml:"llm,omitempty"`                     // nil = template-only content
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr          string `json:"addr,omitempty" yaml:"addr,omitempty"`                       // Default: ":8080".
	ReadTimeoutS  int    `json:"read_timeout_s,omitempty" yaml:"read_timeout_s,omitempty"`   // Default: 30.
	WriteTimeoutS int    `json:"write_timeout_s,omitempty" yaml:"write_timeout_s,omitempty"` // Default: 60.
}

// ListenAddr returns the listen address, defaulting to ":8080".
func (s ServerConfig) ListenAddr() string {
	if s.Addr != "" {
		return s.Addr
	}
	return ":8080"
}

// ReadTimeout returns the read timeout, defaulting to 30s.
func (s ServerConfig) ReadTimeout() time.Duration {
	if s.ReadTimeoutS > 0 {
		return time.Duration(s.ReadTimeoutS) * time.Second
	}
	return 30 * time.Second
}

// WriteTimeout returns the write timeout, defaulting to 60s. Write timeouts
// must cover LLM-backed phase generation, which can take tens of seconds.
func (s ServerConfig) WriteTimeout() time.Duration {
	if s.WriteTimeoutS > 0 {
		return time.Duration(s.WriteTimeoutS) * time.Second
	}
	return 60 * time.Second
}

// BroadcastConfig configures realtime delivery.
type BroadcastConfig struct {
	WS   WSConfig    `json:"ws" yaml:"ws"`
	NATS *NATSConfig `json:"nats,omitempty" yaml:"nats,omitempty"` // nil = single-instance, no bridge
}

// WSConfig configures the WebSocket hub.
type WSConfig struct {
	Token string `json:"token,omitempty" yaml:"token,omitempty"` // Optional shared join token.
}

// NATSConfig configures the NATS fan-out bridge for multi-instance
// deployments.
type NATSConfig struct {
	URL string `json:"url" yaml:"url"`
}

// SchedulerConfig configures the background sweeper.
type SchedulerConfig struct {
	SweepEvery string `json:"sweep_every,omitempty" yaml:"sweep_every,omitempty"` // Cron spec. Default: "@every 5s".
}

// ObservabilityConfig configures metrics, tracing, and health checks.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"` // Default: "/metrics".
}

// MetricsPath returns the exposition path, defaulting to "/metrics".
func (m *MetricsConfig) MetricsPath() string {
	if m != nil && m.Path != "" {
		return m.Path
	}
	return "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317".
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc".
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "brainstormx".
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0-1.0. Default: 1.0.
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev.
}

// LLMConfig configures the content-generation model.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // "openai" or "anthropic".
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Default returns the configuration used when no config file is given:
// SQLite storage next to the working directory and no optional features.
func Default() *Config {
	return &Config{
		Storage: storage.Config{
			Driver: storage.DriverSQLite,
			SQLite: storage.SQLiteConfig{Path: "data/brainstormx.db"},
		},
		Scheduler: &SchedulerConfig{},
	}
}

// FromEnv returns the default configuration with environment overrides
// applied. Used when no config file is present.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a YAML or JSON config file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv applies environment variable overrides. Env vars take precedence
// over file values.
func (c *Config) applyEnv() {
	if dsn := os.Getenv("BRAINSTORMX_DB_DSN"); dsn != "" {
		c.Storage.Driver = storage.DriverPostgres
		c.Storage.Postgres.DSN = dsn
	}
	if token := os.Getenv("BRAINSTORMX_WS_TOKEN"); token != "" {
		c.Broadcast.WS.Token = token
	}
	if url := os.Getenv("BRAINSTORMX_NATS_URL"); url != "" {
		if c.Broadcast.NATS == nil {
			c.Broadcast.NATS = &NATSConfig{}
		}
		c.Broadcast.NATS.URL = url
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM == nil {
			c.LLM = &LLMConfig{Provider: "openai"}
		}
		if c.LLM.Provider == "openai" || c.LLM.Provider == "" {
			c.LLM.APIKey = key
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		if c.LLM == nil {
			c.LLM = &LLMConfig{Provider: "anthropic"}
		}
		if c.LLM.Provider == "anthropic" {
			c.LLM.APIKey = key
		}
	}
}

// Validate rejects configurations that cannot possibly run.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage driver is postgres but no DSN is configured")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.LLM != nil {
		switch c.LLM.Provider {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
		}
	}
	return nil
}
