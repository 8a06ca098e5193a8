package app

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/game"
)

// SimConfig describes a batch of AI-only games against random fleets.
type SimConfig struct {
	GridSize   int
	Difficulty ai.Difficulty
	Games      int
	Seed       int64
	Workers    int
}

type SimResult struct {
	Difficulty ai.Difficulty `json:"difficulty"`
	Games      int           `json:"games"`
	MinShots   int           `json:"minShots"`
	MaxShots   int           `json:"maxShots"`
	MeanShots  float64       `json:"meanShots"`
	Median     int           `json:"medianShots"`
	HitRate    float64       `json:"hitRate"`
	Shots      []int         `json:"-"`
}

// Simulate lets the AI sink a generated fleet Games times and reports how
// many shots each game took. Game i uses Seed+i, so results do not depend on
// the worker count.
func Simulate(ctx context.Context, cfg SimConfig, log zerolog.Logger) (SimResult, error) {
	if cfg.Games <= 0 {
		return SimResult{}, fmt.Errorf("games must be positive, got %d", cfg.Games)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	shots := make([]int, cfg.Games)
	hits := make([]int, cfg.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Games; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, h, err := playOut(cfg, cfg.Seed+int64(i))
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			shots[i], hits[i] = n, h
			log.Debug().Int("game", i).Int("shots", n).Msg("simulated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimResult{}, err
	}

	res := SimResult{Difficulty: cfg.Difficulty, Games: cfg.Games, Shots: shots}
	sorted := slices.Clone(shots)
	slices.Sort(sorted)
	res.MinShots, res.MaxShots = sorted[0], sorted[len(sorted)-1]
	res.Median = sorted[len(sorted)/2]
	total, totalHits := 0, 0
	for i := range shots {
		total += shots[i]
		totalHits += hits[i]
	}
	res.MeanShots = float64(total) / float64(cfg.Games)
	if total > 0 {
		res.HitRate = float64(totalHits) / float64(total)
	}
	return res, nil
}

// playOut runs one game and returns the shots fired and how many hit.
func playOut(cfg SimConfig, seed int64) (int, int, error) {
	rng := rand.New(rand.NewSource(seed))
	ships, _, err := game.GenerateFleet(rng, cfg.GridSize, game.StandardFleet)
	if err != nil {
		return 0, 0, err
	}
	board := game.NewBoard(cfg.GridSize)
	if err := board.Place(ships); err != nil {
		return 0, 0, err
	}
	eng := ai.New(cfg.GridSize, ai.WithRand(rng), ai.WithDifficulty(cfg.Difficulty))

	limit := cfg.GridSize * cfg.GridSize
	shots, hits := 0, 0
	for !board.AllSunk() {
		if shots >= limit {
			return shots, hits, fmt.Errorf("fleet still afloat after %d shots", shots)
		}
		c, ok := eng.NextMove()
		if !ok {
			return shots, hits, fmt.Errorf("ai ran out of moves after %d shots", shots)
		}
		shot, err := board.Fire(c)
		if err != nil {
			return shots, hits, fmt.Errorf("ai fired an illegal shot: %w", err)
		}
		shots++
		if shot.Hit {
			hits++
		}
		eng.NotifyShotOutcome(c, shot.Hit, shot.SunkCells)
	}
	return shots, hits, nil
}
