package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8000" {
		t.Fatalf("http.addr = %q, want :8000", cfg.HTTP.Addr)
	}
	if cfg.Sim.AdminID != "admin" || cfg.Sim.InitialFuel != 1000 || cfg.Sim.AnchorScale != 0.99 {
		t.Fatalf("unexpected sim defaults: %+v", cfg.Sim)
	}
	if cfg.Nav.OrbitPoints != 120 {
		t.Fatalf("nav.orbit_points = %d, want 120", cfg.Nav.OrbitPoints)
	}
	if cfg.HTTP.ShutdownTimeout != 5*time.Second {
		t.Fatalf("shutdown timeout = %v", cfg.HTTP.ShutdownTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ASTROGATOR_HTTP_ADDR", ":9999")
	t.Setenv("ASTROGATOR_EPHEMERIS_BACKEND", "vsop87")
	t.Setenv("ASTROGATOR_SIM_SEED", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("http.addr = %q, want :9999", cfg.HTTP.Addr)
	}
	if cfg.Ephemeris.Backend != "vsop87" {
		t.Fatalf("backend = %q, want vsop87", cfg.Ephemeris.Backend)
	}
	if cfg.Sim.Seed != 42 {
		t.Fatalf("seed = %d, want 42", cfg.Sim.Seed)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "astrogator.yaml")
	doc := "sim:\n  admin_id: root\n  observer_alias: alice\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sim.AdminID != "root" || cfg.Sim.ObserverAlias != "alice" || cfg.Log.Level != "debug" {
		t.Fatalf("file values not applied: %+v %+v", cfg.Sim, cfg.Log)
	}
	if cfg.HTTP.Addr != ":8000" {
		t.Fatalf("defaults should survive a partial file, got %q", cfg.HTTP.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Ephemeris.Backend = "spice" }},
		{"cache", func(c *Config) { c.Ephemeris.CacheSize = -1 }},
		{"admin", func(c *Config) { c.Sim.AdminID = "" }},
		{"fuel", func(c *Config) { c.Sim.InitialFuel = -1 }},
		{"rate", func(c *Config) { c.Nav.BurnRatePerMin = 0 }},
		{"points", func(c *Config) { c.Nav.OrbitPoints = 0 }},
		{"ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
