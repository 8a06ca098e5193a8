// Package store keeps a summary row per finished match in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("store: match not found")

// Match is the audit row written when a match ends.
type Match struct {
	ID         string    `json:"id"`
	GameID     string    `json:"gameId"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	GridSize   int       `json:"gridSize"`
	Difficulty string    `json:"difficulty"`
	Winner     string    `json:"winner"`
	HumanShots int       `json:"humanShots"`
	HumanHits  int       `json:"humanHits"`
	AIShots    int       `json:"aiShots"`
	AIHits     int       `json:"aiHits"`
	Turns      int       `json:"turns"`
	FleetRoot  string    `json:"fleetRoot,omitempty"`
}

// Summary aggregates results per difficulty.
type Summary struct {
	Difficulty  string  `json:"difficulty"`
	Matches     int     `json:"matches"`
	HumanWins   int     `json:"humanWins"`
	AIWins      int     `json:"aiWins"`
	AIAvgShots  float64 `json:"aiAvgShots"`
	AIHitRatePc float64 `json:"aiHitRatePct"`
}

type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed. ":memory:" is accepted.
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{`PRAGMA busy_timeout = 5000;`, `PRAGMA journal_mode = WAL;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    game_id TEXT NOT NULL DEFAULT '',
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL,
    grid_size INTEGER NOT NULL,
    difficulty TEXT NOT NULL,
    winner TEXT NOT NULL,
    human_shots INTEGER NOT NULL,
    human_hits INTEGER NOT NULL,
    ai_shots INTEGER NOT NULL,
    ai_hits INTEGER NOT NULL,
    turns INTEGER NOT NULL,
    fleet_root TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches (ended_at_ms DESC);
`)
	return err
}

// SaveMatch writes m once; saving the same id again is a no-op.
func (s *Store) SaveMatch(ctx context.Context, m Match) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("store: match without id")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO matches (
    id, game_id, started_at_ms, ended_at_ms, grid_size, difficulty, winner,
    human_shots, human_hits, ai_shots, ai_hits, turns, fleet_root
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`, m.ID, m.GameID, m.StartedAt.UTC().UnixMilli(), m.EndedAt.UTC().UnixMilli(), m.GridSize, m.Difficulty, m.Winner,
		m.HumanShots, m.HumanHits, m.AIShots, m.AIHits, m.Turns, m.FleetRoot)
	if err != nil {
		return fmt.Errorf("store: save match %s: %w", m.ID, err)
	}
	return nil
}

const matchColumns = `id, game_id, started_at_ms, ended_at_ms, grid_size, difficulty, winner,
    human_shots, human_hits, ai_shots, ai_hits, turns, fleet_root`

func scanMatch(row interface{ Scan(...any) error }) (Match, error) {
	var m Match
	var started, ended int64
	err := row.Scan(&m.ID, &m.GameID, &started, &ended, &m.GridSize, &m.Difficulty, &m.Winner,
		&m.HumanShots, &m.HumanHits, &m.AIShots, &m.AIHits, &m.Turns, &m.FleetRoot)
	if err != nil {
		return Match{}, err
	}
	m.StartedAt = time.UnixMilli(started).UTC()
	m.EndedAt = time.UnixMilli(ended).UTC()
	return m, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (Match, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, ErrNotFound
	}
	return m, err
}

// ListMatches returns the most recently finished matches first.
func (s *Store) ListMatches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY ended_at_ms DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Summary(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT difficulty,
       COUNT(*),
       SUM(CASE WHEN winner = 'human' THEN 1 ELSE 0 END),
       SUM(CASE WHEN winner = 'ai' THEN 1 ELSE 0 END),
       AVG(ai_shots),
       CASE WHEN SUM(ai_shots) = 0 THEN 0 ELSE 100.0 * SUM(ai_hits) / SUM(ai_shots) END
FROM matches
GROUP BY difficulty
ORDER BY difficulty
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Difficulty, &sm.Matches, &sm.HumanWins, &sm.AIWins, &sm.AIAvgShots, &sm.AIHitRatePc); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
