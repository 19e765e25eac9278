// Package config loads the engine's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Queue   QueueConfig   `yaml:"queue"`
	Connect ConnectConfig `yaml:"connect"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// QueueConfig controls the transfer scheduler.
type QueueConfig struct {
	Capacity      int   `yaml:"capacity"`        // concurrent transfers (default: 3)
	SpeedLimitBPS int64 `yaml:"speed_limit_bps"` // per-item cap in bytes/sec, 0 = unlimited
}

// ConnectConfig controls connection establishment.
type ConnectConfig struct {
	Timeout time.Duration `yaml:"timeout"` // dial timeout (default: 10s)
}

// StoreConfig controls the SQL persistence layer. An empty DSN disables
// persistence entirely.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // json, console (default: console)
}

// MetricsConfig controls the Prometheus scrape endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. ":9090"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Queue:   QueueConfig{Capacity: 3},
		Connect: ConnectConfig{Timeout: 10 * time.Second},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a YAML config file, fills defaults for anything unset, applies
// environment overrides and validates. An empty path returns the defaults.
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
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 3
	}
	if c.Connect.Timeout == 0 {
		c.Connect.Timeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) applyEnv() {
	if dsn := os.Getenv("FERRYMAN_STORE_DSN"); dsn != "" {
		c.Store.DSN = dsn
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be >= 1, got %d", c.Queue.Capacity)
	}
	if c.Queue.SpeedLimitBPS < 0 {
		return fmt.Errorf("queue.speed_limit_bps cannot be negative")
	}
	if c.Connect.Timeout < 0 {
		return fmt.Errorf("connect.timeout cannot be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
