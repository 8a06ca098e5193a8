package ai

import (
	"container/heap"
	"sort"

	"battleship-ai/internal/game"
)

type queueItem struct {
	c        game.Coord
	base     float64 // priority at insertion
	priority float64 // base adjusted for distance to the last hit
	seq      int
	index    int
}

type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *itemHeap) Push(x any) {
	it := x.(*queueItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// targetQueue is a max-heap of candidate cells with at most one entry per cell.
type targetQueue struct {
	h   itemHeap
	pos map[game.Coord]*queueItem
	seq int
}

func newTargetQueue() *targetQueue {
	return &targetQueue{pos: make(map[game.Coord]*queueItem)}
}

func (q *targetQueue) Len() int { return len(q.h) }

func (q *targetQueue) Contains(c game.Coord) bool {
	_, ok := q.pos[c]
	return ok
}

// Push adds c, or raises its priority if already queued.
func (q *targetQueue) Push(c game.Coord, priority float64) {
	if it, ok := q.pos[c]; ok {
		if priority > it.base {
			it.base = priority
			it.priority = priority
			heap.Fix(&q.h, it.index)
		}
		return
	}
	q.seq++
	it := &queueItem{c: c, base: priority, priority: priority, seq: q.seq}
	heap.Push(&q.h, it)
	q.pos[c] = it
}

func (q *targetQueue) Peek() (game.Coord, bool) {
	if len(q.h) == 0 {
		return game.Coord{}, false
	}
	return q.h[0].c, true
}

func (q *targetQueue) Pop() (game.Coord, bool) {
	if len(q.h) == 0 {
		return game.Coord{}, false
	}
	it := heap.Pop(&q.h).(*queueItem)
	delete(q.pos, it.c)
	return it.c, true
}

func (q *targetQueue) Remove(c game.Coord) bool {
	it, ok := q.pos[c]
	if !ok {
		return false
	}
	heap.Remove(&q.h, it.index)
	delete(q.pos, c)
	return true
}

// Prune drops every cell for which keep returns false.
func (q *targetQueue) Prune(keep func(game.Coord) bool) int {
	var drop []game.Coord
	for _, it := range q.h {
		if !keep(it.c) {
			drop = append(drop, it.c)
		}
	}
	for _, c := range drop {
		q.Remove(c)
	}
	return len(drop)
}

// Rescore recomputes every effective priority from the insertion priority.
func (q *targetQueue) Rescore(fn func(c game.Coord, base float64) float64) {
	for _, it := range q.h {
		it.priority = fn(it.c, it.base)
	}
	heap.Init(&q.h)
}

func (q *targetQueue) Clear() {
	q.h = q.h[:0]
	clear(q.pos)
}

// Items lists queued cells best first.
func (q *targetQueue) Items() []game.Coord {
	items := append(itemHeap(nil), q.h...)
	sort.Slice(items, func(i, j int) bool { return items.Less(i, j) })
	out := make([]game.Coord, len(items))
	for i, it := range items {
		out[i] = it.c
	}
	return out
}
