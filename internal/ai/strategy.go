package ai

import (
	"math/rand"
	"sort"

	"battleship-ai/internal/game"
)

// Strategy picks the next cell for one difficulty tier. Implementations
// read the memory and must not change it.
type Strategy interface {
	Name() Difficulty
	Next(m *Memory, rng *rand.Rand) (game.Coord, bool)
}

func strategyFor(d Difficulty) Strategy {
	switch d {
	case Easy:
		return easyStrategy{}
	case Medium:
		return mediumStrategy{}
	default:
		return hardStrategy{}
	}
}

type easyStrategy struct{}

func (easyStrategy) Name() Difficulty { return Easy }

// Next picks uniformly among valid targets, so cells touching a sunk ship
// are skipped like every other tier.
func (easyStrategy) Next(m *Memory, rng *rand.Rand) (game.Coord, bool) {
	return pick(rng, m.validTargets())
}

type mediumStrategy struct{}

func (mediumStrategy) Name() Difficulty { return Medium }

func (s mediumStrategy) Next(m *Memory, rng *rand.Rand) (game.Coord, bool) {
	if m.mode == Target && len(m.hits) > 0 {
		if c, ok := m.extendRuns(); ok {
			return c, true
		}
		if m.lastHit != nil {
			var around []game.Coord
			for _, n := range m.lastHit.Neighbors4(m.size) {
				if m.IsValidTarget(n) {
					around = append(around, n)
				}
			}
			sort.SliceStable(around, func(i, j int) bool {
				return m.movePriority(around[i]) > m.movePriority(around[j])
			})
			if len(around) > 0 {
				return around[0], true
			}
		}
		if c, ok := m.queue.Peek(); ok && m.IsValidTarget(c) {
			return c, true
		}
	}
	return s.hunt(m, rng)
}

func (mediumStrategy) hunt(m *Memory, rng *rand.Rand) (game.Coord, bool) {
	valid := m.validTargets()
	var even []game.Coord
	for _, c := range valid {
		if (c.Row+c.Col)%2 == 0 {
			even = append(even, c)
		}
	}
	if c, ok := pick(rng, even); ok {
		return c, true
	}
	if c, ok := pick(rng, valid); ok {
		return c, true
	}
	return pick(rng, m.untargeted())
}

type hardStrategy struct{}

func (hardStrategy) Name() Difficulty { return Hard }

func (s hardStrategy) Next(m *Memory, rng *rand.Rand) (game.Coord, bool) {
	if m.mode == Target && len(m.hits) > 0 {
		if c, ok := s.target(m); ok {
			return c, true
		}
	}
	return s.hunt(m, rng)
}

// movePriority scores a candidate next to the last hit: cells touching a
// live hit gain 10, cells continuing the line of the last two hits gain 20.
func (m *Memory) movePriority(c game.Coord) float64 {
	p := 1.0
	for _, h := range m.hits {
		if c.Dist(h) == 1 {
			p += 10
			break
		}
	}
	if n := len(m.hits); n >= 2 {
		a, b := m.hits[n-2], m.hits[n-1]
		dr, dc := b.Row-a.Row, b.Col-a.Col
		if abs(dr)+abs(dc) == 1 && c == (game.Coord{Row: b.Row + dr, Col: b.Col + dc}) {
			p += 20
		}
	}
	return p
}

// runs groups live hits into maximal straight lines of at least two cells,
// longest first.
func (m *Memory) runs() [][]game.Coord {
	var out [][]game.Coord
	for _, horizontal := range []bool{true, false} {
		for _, h := range m.hits {
			prev := offset(h, -1, horizontal)
			if m.hitSet.Has(prev) {
				continue
			}
			run := []game.Coord{h}
			for next := offset(h, 1, horizontal); m.hitSet.Has(next); next = offset(next, 1, horizontal) {
				run = append(run, next)
			}
			if len(run) >= 2 {
				out = append(out, run)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// extendRuns returns the first valid cell past either end of the longest
// run: right then left for rows, bottom then top for columns.
func (m *Memory) extendRuns() (game.Coord, bool) {
	for _, run := range m.runs() {
		horizontal := run[0].Row == run[1].Row
		ends := []game.Coord{
			offset(run[len(run)-1], 1, horizontal),
			offset(run[0], -1, horizontal),
		}
		for _, c := range ends {
			if m.IsValidTarget(c) {
				return c, true
			}
		}
	}
	return game.Coord{}, false
}

func pick(rng *rand.Rand, cells []game.Coord) (game.Coord, bool) {
	if len(cells) == 0 {
		return game.Coord{}, false
	}
	return cells[rng.Intn(len(cells))], true
}
