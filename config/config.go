package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/taskmesh/logging"
)

// EnvPrefix prefixes every environment override, e.g. TASKMESH_LOG_LEVEL.
const EnvPrefix = "TASKMESH_"

// Config is the executor configuration. Values come from Default, then the
// YAML file, then the environment.
type Config struct {
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Actions  ActionsConfig  `yaml:"actions" envPrefix:"ACTIONS_"`
	Runner   RunnerConfig   `yaml:"runner" envPrefix:"RUNNER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Format    string `yaml:"format" env:"FORMAT"`
	AddSource bool   `yaml:"add_source" env:"ADD_SOURCE"`
	// Backend is "slog" or "zap".
	Backend string `yaml:"backend" env:"BACKEND"`
}

// ActionsConfig tunes the default actions.
type ActionsConfig struct {
	UseBelief      bool          `yaml:"use_belief" env:"USE_BELIEF"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	CancelTimeout  time.Duration `yaml:"cancel_timeout" env:"CANCEL_TIMEOUT"`
	WaitTick       time.Duration `yaml:"wait_tick" env:"WAIT_TICK"`
	Enabled        []string      `yaml:"enabled" env:"ENABLED" envSeparator:","`
}

// RunnerConfig tunes the runner.
type RunnerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	HistoryLimit int           `yaml:"history_limit" env:"HISTORY_LIMIT"`
}

// DatabaseConfig locates the task database.
type DatabaseConfig struct {
	// Path is a SQLite DSN; ":memory:" keeps everything in process.
	Path string `yaml:"path" env:"PATH"`
	// Seed is an optional YAML file applied at startup.
	Seed string `yaml:"seed" env:"SEED"`
}

// RedisConfig enables the Redis goal transport. An empty Addr keeps the
// in-process collaborators.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// MetricsConfig enables the Prometheus counters.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json", Backend: "slog"},
		Actions: ActionsConfig{
			ConnectTimeout: 30 * time.Second,
			CancelTimeout:  5 * time.Second,
			WaitTick:       100 * time.Millisecond,
		},
		Runner:   RunnerConfig{PollInterval: 10 * time.Millisecond, HistoryLimit: 1000},
		Database: DatabaseConfig{Path: ":memory:"},
		Redis:    RedisConfig{Prefix: "taskmesh"},
		Metrics:  MetricsConfig{Namespace: "taskmesh"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if !slices.Contains([]string{"slog", "zap"}, c.Log.Backend) {
		errs = append(errs, fmt.Errorf("log.backend: unknown backend %q", c.Log.Backend))
	}
	for name, d := range map[string]time.Duration{
		"actions.connect_timeout": c.Actions.ConnectTimeout,
		"actions.cancel_timeout":  c.Actions.CancelTimeout,
		"actions.wait_tick":       c.Actions.WaitTick,
		"runner.poll_interval":    c.Runner.PollInterval,
		"redis.ttl":               c.Redis.TTL,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", name))
		}
	}
	if c.Runner.HistoryLimit < 0 {
		errs = append(errs, errors.New("runner.history_limit: must not be negative"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path: required"))
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the log section.
func (c LogConfig) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultLoggerConfig()
	lc.Level, _ = logging.ParseLevel(c.Level)
	lc.Format = c.Format
	lc.AddSource = c.AddSource
	return lc
}
