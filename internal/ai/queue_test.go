package ai

import (
	"testing"

	"battleship-ai/internal/game"
)

func TestQueueDeduplicates(t *testing.T) {
	q := newTargetQueue()
	c := game.Coord{Row: 3, Col: 3}
	q.Push(c, 1)
	q.Push(c, 5)
	q.Push(c, 2)
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	if it := q.pos[c]; it.base != 5 {
		t.Fatalf("base = %v, want the highest pushed priority 5", it.base)
	}
}

func TestQueueOrder(t *testing.T) {
	q := newTargetQueue()
	a := game.Coord{Row: 1, Col: 1}
	b := game.Coord{Row: 1, Col: 2}
	c := game.Coord{Row: 1, Col: 3}
	q.Push(a, 1)
	q.Push(b, 3)
	q.Push(c, 3)

	want := []game.Coord{b, c, a}
	got := q.Items()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
	if top, _ := q.Peek(); top != b {
		t.Fatalf("peek = %v, want %v", top, b)
	}
	if q.Len() != 3 {
		t.Fatal("peek must not remove")
	}
	for _, w := range want {
		if got, ok := q.Pop(); !ok || got != w {
			t.Fatalf("pop = %v, want %v", got, w)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop on empty queue")
	}
}

func TestQueueRescoreByDistance(t *testing.T) {
	q := newTargetQueue()
	near := game.Coord{Row: 5, Col: 6}
	far := game.Coord{Row: 9, Col: 9}
	q.Push(far, 50)
	q.Push(near, 1)
	last := game.Coord{Row: 5, Col: 5}
	q.Rescore(func(c game.Coord, base float64) float64 {
		return base - 1000*float64(c.Dist(last))
	})
	if top, _ := q.Peek(); top != near {
		t.Fatalf("peek = %v, want %v", top, near)
	}
}

func TestQueuePruneAndRemove(t *testing.T) {
	q := newTargetQueue()
	for col := 1; col <= 5; col++ {
		q.Push(game.Coord{Row: 1, Col: col}, float64(col))
	}
	n := q.Prune(func(c game.Coord) bool { return c.Col%2 == 1 })
	if n != 2 || q.Len() != 3 {
		t.Fatalf("pruned %d, left %d", n, q.Len())
	}
	if !q.Remove(game.Coord{Row: 1, Col: 5}) {
		t.Fatal("remove of queued cell failed")
	}
	if q.Remove(game.Coord{Row: 1, Col: 2}) {
		t.Fatal("remove of pruned cell succeeded")
	}
	if top, _ := q.Peek(); top != (game.Coord{Row: 1, Col: 3}) {
		t.Fatalf("peek = %v", top)
	}
	q.Clear()
	if q.Len() != 0 || q.Contains(game.Coord{Row: 1, Col: 1}) {
		t.Fatal("clear left items behind")
	}
}
