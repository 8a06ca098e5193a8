package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"battleship-ai/internal/ai"
)

func TestSimulateHard(t *testing.T) {
	res, err := Simulate(context.Background(), SimConfig{
		GridSize:   10,
		Difficulty: ai.Hard,
		Games:      6,
		Seed:       3,
		Workers:    3,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if res.Games != 6 || len(res.Shots) != 6 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.MinShots < 17 || res.MaxShots > 100 || res.MinShots > res.Median || res.Median > res.MaxShots {
		t.Fatalf("shot counts out of range: %+v", res)
	}
	if res.HitRate < 0.16 || res.HitRate > 1 {
		t.Fatalf("hit rate %.2f", res.HitRate)
	}
}

func TestSimulateRejectsEmptyBatch(t *testing.T) {
	if _, err := Simulate(context.Background(), SimConfig{GridSize: 10, Difficulty: ai.Easy}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for zero games")
	}
}

func TestSimulateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Simulate(ctx, SimConfig{GridSize: 10, Difficulty: ai.Easy, Games: 4, Workers: 2}, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
