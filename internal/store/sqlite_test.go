package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func match(id, difficulty, winner string, ended time.Time, aiShots, aiHits int) Match {
	return Match{
		ID:         id,
		GameID:     "g-" + id,
		StartedAt:  ended.Add(-time.Minute),
		EndedAt:    ended,
		GridSize:   10,
		Difficulty: difficulty,
		Winner:     winner,
		HumanShots: 40,
		HumanHits:  17,
		AIShots:    aiShots,
		AIHits:     aiHits,
		Turns:      30,
		FleetRoot:  "0xabc",
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	ended := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := match("m1", "hard", "ai", ended, 50, 17)
	if err := s.SaveMatch(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetMatch(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.EndedAt.Equal(want.EndedAt) {
		t.Fatalf("times = %v %v", got.StartedAt, got.EndedAt)
	}
	got.StartedAt, got.EndedAt = want.StartedAt, want.EndedAt
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, err := s.GetMatch(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveIsWriteOnce(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveMatch(ctx, match("m1", "easy", "human", now, 80, 17)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMatch(ctx, match("m1", "easy", "ai", now, 80, 17)); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetMatch(ctx, "m1")
	if got.Winner != "human" {
		t.Fatalf("winner overwritten: %s", got.Winner)
	}
	if err := s.SaveMatch(ctx, Match{}); err == nil {
		t.Fatal("match without id saved")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveMatch(ctx, match(id, "medium", "ai", base.Add(time.Duration(i)*time.Hour), 60, 17)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListMatches(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("got %+v", got)
	}
}

func TestSummary(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = s.SaveMatch(ctx, match("h1", "hard", "ai", now, 40, 17))
	_ = s.SaveMatch(ctx, match("h2", "hard", "human", now, 60, 13))
	_ = s.SaveMatch(ctx, match("e1", "easy", "human", now, 90, 10))

	sums, err := s.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 2 || sums[0].Difficulty != "easy" || sums[1].Difficulty != "hard" {
		t.Fatalf("sums = %+v", sums)
	}
	hard := sums[1]
	if hard.Matches != 2 || hard.AIWins != 1 || hard.HumanWins != 1 || hard.AIAvgShots != 50 || hard.AIHitRatePc != 30 {
		t.Fatalf("hard = %+v", hard)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if _, err := Open(" "); err == nil {
		t.Fatal("blank path accepted")
	}
}
