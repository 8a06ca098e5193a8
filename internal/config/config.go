// Package config loads the settings shared by the server and the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/merkle"
)

type Config struct {
	Addr         string `json:"addr"`
	GridSize     int    `json:"grid_size"`
	Difficulty   string `json:"difficulty"`
	ThinkDelayMs int    `json:"think_delay_ms"`
	AutoAITurns  bool   `json:"auto_ai_turns"`
	Seed         int64  `json:"seed"` // 0 picks a fresh seed per match
	DBPath       string `json:"db_path"`
	KeysDir      string `json:"keys_dir"`
	ProveShots   bool   `json:"prove_shots"`
	MaxSessions  int    `json:"max_sessions"`
	LogLevel     string `json:"log_level"`
	LogFormat    string `json:"log_format"` // console or json
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		GridSize:     10,
		Difficulty:   string(ai.Medium),
		ThinkDelayMs: 600,
		AutoAITurns:  true,
		DBPath:       "data/history.db",
		KeysDir:      "./keys",
		MaxSessions:  256,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.GridSize < 7 || c.GridSize > 26 {
		return fmt.Errorf("grid_size must be in [7, 26], got %d", c.GridSize)
	}
	if _, err := ai.ParseDifficulty(c.Difficulty); err != nil {
		return err
	}
	if c.ThinkDelayMs < 0 {
		return fmt.Errorf("think_delay_ms must be >= 0")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be > 0")
	}
	if c.ProveShots && c.GridSize*c.GridSize > merkle.LeafCount {
		return fmt.Errorf("prove_shots needs grid_size^2 <= %d, got %d", merkle.LeafCount, c.GridSize*c.GridSize)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

func (c Config) ThinkDelay() time.Duration { return time.Duration(c.ThinkDelayMs) * time.Millisecond }

func (c Config) AIDifficulty() ai.Difficulty { return ai.Difficulty(c.Difficulty) }
