package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"difficulty":"hard","think_delay_ms":50}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Difficulty != "hard" || cfg.ThinkDelay() != 50*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.GridSize != 10 || cfg.Addr != ":8080" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, err = %v", cfg, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"tiny grid", func(c *Config) { c.GridSize = 4 }},
		{"unknown difficulty", func(c *Config) { c.Difficulty = "insane" }},
		{"negative delay", func(c *Config) { c.ThinkDelayMs = -1 }},
		{"no sessions", func(c *Config) { c.MaxSessions = 0 }},
		{"proofs on a big board", func(c *Config) { c.ProveShots, c.GridSize = true, 12 }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	_ = os.WriteFile(path, []byte(`{"grid_size":`), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error")
	}
}
