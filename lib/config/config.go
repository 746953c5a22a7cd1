// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for SphereOS binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - SPHEREOS_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides. The
// only expansion performed is ${VAR} and ${VAR:-default} in paths, for
// portability across home directories.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sphereos-foundation/sphereos/lib/lattice"
)

// Config is the master configuration for SphereOS.
type Config struct {
	// Database configures the storage engine.
	Database DatabaseConfig `yaml:"database"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// DatabaseConfig configures the storage engine.
type DatabaseConfig struct {
	// Path is the SQLite database file holding the object pool and
	// all four address indexes.
	// Default: ${HOME}/.local/share/sphereos/sphere.db
	Path string `yaml:"path"`

	// PoolSize is the connection pool size. Zero uses the pool's
	// default (max of NumCPU and 4).
	PoolSize int `yaml:"pool_size"`

	// BusyTimeout bounds lock waits, in Go duration syntax, e.g.
	// "5s". Empty uses the pool's default.
	BusyTimeout string `yaml:"busy_timeout"`

	// LatticePoints is the coordinate lattice point count. Must match
	// the value pinned in an existing database.
	// Default: 108
	LatticePoints int `yaml:"lattice_points"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is "text" or "json".
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the default configuration. These defaults are a
// complete working config for a single-user installation; a config
// file overrides them field by field.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Database: DatabaseConfig{
			Path:          filepath.Join(homeDir, ".local", "share", "sphereos", "sphere.db"),
			LatticePoints: lattice.DefaultPointCount,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the SPHEREOS_CONFIG environment
// variable, or returns the defaults when it is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("SPHEREOS_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults. Environment variables do not override config values;
// the only expansion performed is ${VAR} patterns in paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	c.Database.Path = expandVars(c.Database.Path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Database.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("database.pool_size must not be negative"))
	}
	if _, err := c.Database.BusyTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Database.LatticePoints < 1 {
		errs = append(errs, fmt.Errorf("database.lattice_points must be at least 1"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of: text, json"))
	}

	return errors.Join(errs...)
}

// BusyTimeoutDuration parses the busy timeout. An empty value means
// zero (use the pool's default).
func (c DatabaseConfig) BusyTimeoutDuration() (time.Duration, error) {
	if c.BusyTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.BusyTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("database.busy_timeout %q is not a valid duration", c.BusyTimeout)
	}
	return d, nil
}

// EnsureDatabaseDir creates the database file's parent directory if it
// does not exist.
func (c *Config) EnsureDatabaseDir() error {
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", dir, err)
	}
	return nil
}
