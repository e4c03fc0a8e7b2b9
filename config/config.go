// Package config loads server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Engine EngineConfig `yaml:"engine"`
	KBPath string       `yaml:"kb_path"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the checkpoint backend.
type StoreConfig struct {
	// Backend is one of memory, sqlite, mysql, redis.
	Backend string `yaml:"backend"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
	// DSN is the connection string for the mysql backend.
	DSN string `yaml:"dsn"`
	// Redis connection settings.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EngineConfig tunes turn execution.
type EngineConfig struct {
	NodeTimeout time.Duration `yaml:"node_timeout"`
	MaxSteps    int           `yaml:"max_steps"`
}

// Default returns the configuration used when no file is given: local listen
// address and a SQLite checkpoint file, matching a single-machine deployment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    ".checkpoints/state.sqlite3",
		},
		Engine: EngineConfig{
			NodeTimeout: 30 * time.Second,
			MaxSteps:    50,
		},
	}
}

// Load reads a YAML config file, applying defaults for anything unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store backend %s requires path", c.Store.Backend)
		}
	case BackendMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("store backend %s requires dsn", c.Store.Backend)
		}
	case BackendRedis:
		if c.Store.Addr == "" {
			return fmt.Errorf("store backend %s requires addr", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	if c.Engine.MaxSteps < 0 {
		return fmt.Errorf("engine max_steps cannot be negative")
	}
	if c.Engine.NodeTimeout < 0 {
		return fmt.Errorf("engine node_timeout cannot be negative")
	}
	return nil
}
