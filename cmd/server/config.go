// Package main provides the OnCall server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Debug     bool            `yaml:"debug"` // disables integration rate limiting
	Verbose   bool            `yaml:"-"`     // set via CLI flag
}

// ServerConfig contains ingestion HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`  // HTTP listen address (default: :8080)
	BaseURL string `yaml:"base_url"` // Externally visible URL prefix
}

// DatabaseConfig contains sqlite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // sqlite file path (default: data/oncall.db)
}

// QueueConfig contains NATS JetStream settings.
type QueueConfig struct {
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	Subject       string `yaml:"subject"`
	ConsumerName  string `yaml:"consumer_name"`
	DeliverGroup  string `yaml:"deliver_group"`
	MaxDeliver    int    `yaml:"max_deliver"`
	AckWaitSec    int    `yaml:"ack_wait_sec"`
	MaxAckPending int    `yaml:"max_ack_pending"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// RateLimitConfig contains integration throttling settings.
type RateLimitConfig struct {
	Requests         int    `yaml:"requests"`            // per channel per window
	Window           string `yaml:"window"`              // e.g. "5m"
	SignalRatePerSec int    `yaml:"signal_rate_per_sec"` // heartbeat pings per channel
	SignalBurst      int    `yaml:"signal_burst"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/oncall.db"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 300
	}
	if c.RateLimit.Window == "" {
		c.RateLimit.Window = "5m"
	}
	if c.RateLimit.SignalRatePerSec == 0 {
		c.RateLimit.SignalRatePerSec = 2
	}
	if c.RateLimit.SignalBurst == 0 {
		c.RateLimit.SignalBurst = 10
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := c.RateLimitWindow(); err != nil {
		return fmt.Errorf("rate_limit.window: %w", err)
	}
	return nil
}

// RateLimitWindow parses the configured window duration.
func (c *Config) RateLimitWindow() (time.Duration, error) {
	return time.ParseDuration(c.RateLimit.Window)
}
