package ai

import (
	"math"
	"sort"

	"battleship-ai/internal/game"
)

type completion struct {
	c    game.Coord
	size int
	prob float64
	dist int
}

// target walks the target-mode tiers in order and returns the first hit.
func (hardStrategy) target(m *Memory) (game.Coord, bool) {
	tiers := []func() (game.Coord, bool){
		m.extendRuns,
		m.completionMove,
		m.clusterMove,
		m.bayesianMove,
		m.constraintMove,
		func() (game.Coord, bool) {
			c, ok := m.queue.Peek()
			return c, ok && m.IsValidTarget(c)
		},
	}
	for _, tier := range tiers {
		if c, ok := tier(); ok {
			return c, true
		}
	}
	return game.Coord{}, false
}

// completionMove ranks every open cell of every placement that covers a live
// hit: larger ships first, then the share of the placement already hit.
func (m *Memory) completionMove() (game.Coord, bool) {
	var cands []completion
	for _, hit := range m.hits {
		for _, size := range m.RemainingSizes() {
			for _, horizontal := range []bool{true, false} {
				for k := 0; k < size; k++ {
					head := offset(hit, -k, horizontal)
					if !m.canPlace(head, size, horizontal) {
						continue
					}
					var open []game.Coord
					hits := 0
					for i := 0; i < size; i++ {
						c := offset(head, i, horizontal)
						if m.hitSet.Has(c) {
							hits++
						} else if m.IsValidTarget(c) {
							open = append(open, c)
						}
					}
					for _, c := range open {
						cands = append(cands, completion{
							c:    c,
							size: size,
							prob: float64(hits) / float64(size),
							dist: m.distToLastHit(c),
						})
					}
				}
			}
		}
	}
	if len(cands) == 0 {
		return game.Coord{}, false
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		switch {
		case a.size != b.size:
			return a.size > b.size
		case a.prob != b.prob:
			return a.prob > b.prob
		case a.dist != b.dist:
			return a.dist < b.dist
		case a.c.Row != b.c.Row:
			return a.c.Row < b.c.Row
		}
		return a.c.Col < b.c.Col
	})
	return cands[0].c, true
}

// clusterMove probes around the centre of the last three live hits.
func (m *Memory) clusterMove() (game.Coord, bool) {
	if len(m.hits) < 2 {
		return game.Coord{}, false
	}
	row, col := center(m.hits[max(0, len(m.hits)-3):])
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			c := game.Coord{Row: int(math.Round(row)) + dr, Col: int(math.Round(col)) + dc}
			if m.IsValidTarget(c) {
				return c, true
			}
		}
	}
	return game.Coord{}, false
}

// bayesianMove scores local hit density and returns the best cell only when
// it clears the adaptive threshold.
func (m *Memory) bayesianMove() (game.Coord, bool) {
	var best game.Coord
	bestScore := 0.0
	remaining := m.RemainingSizes()
	for i := 0; i < m.size*m.size; i++ {
		c := game.CoordAt(i, m.size)
		if !m.IsValidTarget(c) {
			continue
		}
		score := 0.0
		for _, h := range m.hits {
			if d := c.Dist(h); d <= 2 {
				score += float64(3-d) * 0.3
			}
		}
		for _, size := range remaining {
			if m.couldComplete(c, size) {
				score += float64(size) * 0.2
			}
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore > m.adaptiveThreshold
}

// constraintMove returns the first cell, row-major, that could belong to a
// remaining ship together with a live hit.
func (m *Memory) constraintMove() (game.Coord, bool) {
	remaining := m.RemainingSizes()
	for i := 0; i < m.size*m.size; i++ {
		c := game.CoordAt(i, m.size)
		if !m.IsValidTarget(c) {
			continue
		}
		for _, size := range remaining {
			if m.couldComplete(c, size) {
				return c, true
			}
		}
	}
	return game.Coord{}, false
}

// couldComplete reports whether some open placement of the given size
// covers c and at least one live hit.
func (m *Memory) couldComplete(c game.Coord, size int) bool {
	for _, horizontal := range []bool{true, false} {
		for k := 0; k < size; k++ {
			head := offset(c, -k, horizontal)
			if !m.canPlace(head, size, horizontal) {
				continue
			}
			for i := 0; i < size; i++ {
				if m.hitSet.Has(offset(head, i, horizontal)) {
					return true
				}
			}
		}
	}
	return false
}

func (m *Memory) distToLastHit(c game.Coord) int {
	if m.lastHit == nil {
		return 0
	}
	return c.Dist(*m.lastHit)
}
