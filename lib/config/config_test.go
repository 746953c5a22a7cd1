// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sphereos-foundation/sphereos/lib/lattice"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sphereos.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if Default().Database.LatticePoints != lattice.DefaultPointCount {
		t.Errorf("default lattice points = %d", Default().Database.LatticePoints)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/sphereos/sphere.db
  pool_size: 8
  busy_timeout: 2s
log:
  format: json
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.Path != "/var/lib/sphereos/sphere.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	if cfg.Database.PoolSize != 8 {
		t.Errorf("PoolSize = %d", cfg.Database.PoolSize)
	}
	if d, err := cfg.Database.BusyTimeoutDuration(); err != nil || d != 2*time.Second {
		t.Errorf("BusyTimeoutDuration = %v, %v", d, err)
	}
	// Unset fields keep their defaults.
	if cfg.Database.LatticePoints != lattice.DefaultPointCount {
		t.Errorf("LatticePoints = %d", cfg.Database.LatticePoints)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q", cfg.Log.Format)
	}
}

func TestLoadFileExpandsVariables(t *testing.T) {
	t.Setenv("SPHEREOS_TEST_DIR", "/data")
	path := writeConfig(t, `
database:
  path: ${SPHEREOS_TEST_DIR}/sphere.db
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.Path != "/data/sphere.db" {
		t.Errorf("Path = %q, want /data/sphere.db", cfg.Database.Path)
	}
}

func TestExpandVarsDefault(t *testing.T) {
	os.Unsetenv("SPHEREOS_UNSET_VAR")
	got := expandVars("${SPHEREOS_UNSET_VAR:-/fallback}/db")
	if got != "/fallback/db" {
		t.Errorf("expandVars = %q, want /fallback/db", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.Database.Path = "" }},
		{"negative pool", func(c *Config) { c.Database.PoolSize = -1 }},
		{"bad busy timeout", func(c *Config) { c.Database.BusyTimeout = "soon" }},
		{"zero lattice points", func(c *Config) { c.Database.LatticePoints = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted bad config")
			}
		})
	}
}

func TestLoadWithoutEnvReturnsDefaults(t *testing.T) {
	t.Setenv("SPHEREOS_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path == "" {
		t.Error("default config has empty database path")
	}
}
