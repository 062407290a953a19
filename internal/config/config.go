// Package config holds the kifql command-line configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendLocal  = "local"
	BackendSPARQL = "sparql"
)

// Config is the kifql configuration.
type Config struct {
	// Backend selects where queries run: the local graph or a SPARQL
	// endpoint.
	Backend  string `yaml:"backend"`
	Endpoint string `yaml:"endpoint"`
	// Data is the directory of the local graph; empty keeps it in memory.
	Data string `yaml:"data"`

	PageSize  int    `yaml:"page_size"`
	Limit     int    `yaml:"limit"`
	Timeout   string `yaml:"timeout"`
	CacheSize int    `yaml:"cache_size"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:   BackendLocal,
		Endpoint:  "https://query.wikidata.org/sparql",
		Data:      "./kifql.db",
		PageSize:  100,
		Timeout:   "60s",
		CacheSize: 256,
		LogLevel:  "info",
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if endpoint := os.Getenv("KIFQL_ENDPOINT"); endpoint != "" {
		c.Endpoint = endpoint
		c.Backend = BackendSPARQL
	}
	if data := os.Getenv("KIFQL_DATA"); data != "" {
		c.Data = data
	}
}

// Validate checks the configuration for values no command can run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendSPARQL:
		if c.Endpoint == "" {
			return fmt.Errorf("backend %q needs an endpoint", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// GetTimeout returns the request timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetLogLevel returns the configured log level.
func (c *Config) GetLogLevel() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
