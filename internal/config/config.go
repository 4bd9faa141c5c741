// Package config loads service configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trade-memory/internal/adjustment"
	"trade-memory/internal/llm"
	"trade-memory/internal/metrics"
	"trade-memory/internal/patterns"
	"trade-memory/internal/reporting"
)

// Config is the full service configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	UseMemory bool   `yaml:"use_memory"`
	OutputDir string `yaml:"output_dir"`

	Postgres   PostgresConfig   `yaml:"postgres"`
	Clickhouse ClickhouseConfig `yaml:"clickhouse"`
	API        APIConfig        `yaml:"api"`
	LLM        llm.Config       `yaml:"llm"`

	Metrics    metrics.Config    `yaml:"metrics"`
	Reporting  reporting.Config  `yaml:"reporting"`
	Patterns   patterns.Config   `yaml:"patterns"`
	Adjustment adjustment.Config `yaml:"adjustment"`
	Risk       RiskConfig        `yaml:"risk"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

type ClickhouseConfig struct {
	DSN string `yaml:"dsn"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
	// ScheduleInterval runs the reflection cycle in the background while
	// serving. Zero disables the scheduler.
	ScheduleInterval time.Duration `yaml:"schedule_interval"`
}

// RiskConfig holds the current max position sizes the adjustment rules scale.
type RiskConfig struct {
	StrategyMaxSize map[string]float64 `yaml:"strategy_max_size"`
	SessionMaxSize  map[string]float64 `yaml:"session_max_size"`
}

// Limits converts the risk section for the rule engine.
func (r RiskConfig) Limits() adjustment.RiskLimits {
	return adjustment.RiskLimits{
		StrategyMaxSize: r.StrategyMaxSize,
		SessionMaxSize:  r.SessionMaxSize,
	}
}

// Default returns a configuration that runs fully in memory.
func Default() Config {
	return Config{
		LogLevel:   "info",
		UseMemory:  true,
		OutputDir:  "reports",
		API:        APIConfig{Addr: ":8080"},
		LLM:        llm.DefaultConfig(),
		Metrics:    metrics.DefaultConfig(),
		Reporting:  reporting.DefaultConfig(),
		Patterns:   patterns.DefaultConfig(),
		Adjustment: adjustment.DefaultConfig(),
	}
}

// Load reads an optional .env file, the YAML file at path (skipped when
// path is empty) and the environment, in that order of precedence from
// lowest to highest, then validates the result.
func Load(path string) (Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	cfg.Patterns.Metrics = cfg.Metrics

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
		c.UseMemory = false
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Clickhouse.DSN = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEMEMORY_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("TRADEMEMORY_MODEL")); v != "" {
		c.Reporting.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEMEMORY_API_ADDR")); v != "" {
		c.API.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEMEMORY_SCHEDULE_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.ScheduleInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADEMEMORY_OUTPUT_DIR")); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEMEMORY_USE_MEMORY")); v != "" {
		c.UseMemory = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks thresholds and storage settings.
func (c Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	if c.API.ScheduleInterval < 0 {
		errs = append(errs, errors.New("api.schedule_interval must not be negative"))
	}
	if !c.UseMemory && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required unless use_memory is set"))
	}
	if c.Postgres.MaxConns < 0 {
		errs = append(errs, errors.New("postgres.max_conns must not be negative"))
	}

	m := c.Metrics
	if m.MinSample < 1 {
		errs = append(errs, errors.New("metrics.min_sample must be at least 1"))
	}
	if m.LowBandMax < 0 || m.HighBandMin > 1 || m.LowBandMax > m.HighBandMin {
		errs = append(errs, errors.New("metrics confidence bands need 0 <= low_band_max <= high_band_min <= 1"))
	}

	p := c.Patterns
	if p.MinEvidence < 1 {
		errs = append(errs, errors.New("patterns.min_evidence must be at least 1"))
	}
	if p.WeakWinRate >= p.HighEdgeWinRate {
		errs = append(errs, errors.New("patterns.weak_win_rate must be below high_edge_win_rate"))
	}
	if p.SampleScale < 1 {
		errs = append(errs, errors.New("patterns.sample_scale must be at least 1"))
	}

	a := c.Adjustment
	if a.ReduceFactor <= 0 || a.ReduceFactor >= 1 {
		errs = append(errs, errors.New("adjustment.reduce_factor must be in (0, 1)"))
	}
	if a.PreferMultiplier <= 1 || a.IncreaseMultiplier <= 1 {
		errs = append(errs, errors.New("adjustment multipliers must be above 1"))
	}
	if a.MaxSizeCap <= 0 || a.DefaultMaxSize <= 0 {
		errs = append(errs, errors.New("adjustment.max_size_cap and default_max_size must be positive"))
	}
	if a.MinEvidence < p.MinEvidence {
		errs = append(errs, fmt.Errorf("adjustment.min_evidence (%d) must not be below patterns.min_evidence (%d)", a.MinEvidence, p.MinEvidence))
	}

	r := c.Reporting
	if r.HighConfidence < 0 || r.HighConfidence > 1 {
		errs = append(errs, errors.New("reporting.high_confidence must be in [0, 1]"))
	}
	if r.GeneratorTimeout <= 0 {
		errs = append(errs, errors.New("reporting.generator_timeout must be positive"))
	}

	for name, size := range c.Risk.StrategyMaxSize {
		if size <= 0 {
			errs = append(errs, fmt.Errorf("risk.strategy_max_size[%s] must be positive", name))
		}
	}
	for name, size := range c.Risk.SessionMaxSize {
		if size <= 0 {
			errs = append(errs, fmt.Errorf("risk.session_max_size[%s] must be positive", name))
		}
	}

	return errors.Join(errs...)
}

// GeneratorEnabled reports whether an external narrative generator is configured.
func (c Config) GeneratorEnabled() bool {
	return c.LLM.APIKey != ""
}
