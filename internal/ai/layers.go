package ai

import (
	"math"

	"battleship-ai/internal/game"
)

const (
	heatDecay    = 0.95
	heatRadius   = 2
	hitBoost     = 50.0
	regionWeight = 2.0
)

// weights controls how the four layers blend into the combined map.
type weights struct {
	Probability, Heat, Density, Parity float64
}

// refresh recomputes every scoring layer from the current memory. Heat only
// changes when the update was caused by one of the AI's own shots.
func (m *Memory) refresh(aiShot bool) {
	m.updateOpponent()
	m.updateProbability()
	m.updateHeat(aiShot)
	m.updateDensity()
	m.updateParity()
	m.updatePhase()
}

func (m *Memory) progress() float64 {
	return float64(len(m.history)) / float64(m.size*m.size)
}

func (m *Memory) hitRate() float64 {
	if len(m.history) == 0 {
		return 0
	}
	hits := 0
	for _, s := range m.history {
		if s.Hit {
			hits++
		}
	}
	return float64(hits) / float64(len(m.history))
}

func (m *Memory) updatePhase() {
	switch p := m.progress(); {
	case p < 0.3:
		m.phase = Early
	case p < 0.7:
		m.phase = Mid
	default:
		m.phase = Late
	}
}

// updateProbability counts, for every cell, the placements of remaining
// ships that cover it, and boosts cells next to unresolved hits.
func (m *Memory) updateProbability() {
	m.probability.Fill(0)
	for _, size := range m.RemainingSizes() {
		for i := 0; i < m.size*m.size; i++ {
			head := game.CoordAt(i, m.size)
			for _, horizontal := range []bool{true, false} {
				if !m.canPlace(head, size, horizontal) {
					continue
				}
				for k := 0; k < size; k++ {
					*m.probability.Ptr(offset(head, k, horizontal))++
				}
			}
		}
	}
	for _, h := range m.hits {
		for _, n := range h.Neighbors4(m.size) {
			if m.IsValidTarget(n) {
				*m.probability.Ptr(n) += hitBoost
			}
		}
	}
	m.zeroClosed(m.probability)
}

// updateHeat decays the map and re-injects heat around live hits. Both only
// happen on the AI's own shots; other updates just clear closed cells.
func (m *Memory) updateHeat(shot bool) {
	if !shot {
		m.zeroClosed(m.heat)
		return
	}
	for i := 0; i < m.size*m.size; i++ {
		*m.heat.Ptr(game.CoordAt(i, m.size)) *= heatDecay
	}
	for idx, h := range m.hits {
		recency := float64(idx+1) / float64(len(m.hits))
		for dr := -heatRadius; dr <= heatRadius; dr++ {
			for dc := -heatRadius; dc <= heatRadius; dc++ {
				c := game.Coord{Row: h.Row + dr, Col: h.Col + dc}
				if !c.In(m.size) {
					continue
				}
				*m.heat.Ptr(c) += 10 * recency / float64(abs(dr)+abs(dc)+1)
			}
		}
	}
	m.zeroClosed(m.heat)
}

func (m *Memory) updateDensity() {
	m.density.Fill(0)
	remaining := m.RemainingSizes()
	for i := 0; i < m.size*m.size; i++ {
		c := game.CoordAt(i, m.size)
		if m.targeted.Has(c) {
			continue
		}
		var d float64
		for _, size := range remaining {
			h, v := m.placementsCovering(c, size)
			d += float64(h + v)
		}
		d += m.clusteringBonus(c) * m.opponent.ClusteringTendency
		d += float64(m.opponent.RegionPreference[m.region(c)]) * regionWeight
		m.density.Set(c, d)
	}
	m.zeroClosed(m.density)
}

func (m *Memory) updateParity() {
	smallest := 0
	for _, s := range m.RemainingSizes() {
		if smallest == 0 || s < smallest {
			smallest = s
		}
	}
	for i := 0; i < m.size*m.size; i++ {
		c := game.CoordAt(i, m.size)
		score := 3.0
		switch smallest {
		case 2:
			score = 1
			if (c.Row+c.Col)%2 == 0 {
				score = 5
			}
		case 3:
			score = 2
			if (c.Row+c.Col)%3 == 0 {
				score = 5
			}
		}
		m.parity.Set(c, score)
	}
}

// updateOpponent learns orientation, clustering and region preferences from
// the enemy ships sunk so far.
func (m *Memory) updateOpponent() {
	ships := m.enemySunk()
	var horizontal, oriented int
	for _, s := range ships {
		if len(s) < 2 {
			continue
		}
		oriented++
		if s[0].Row == s[1].Row {
			horizontal++
		}
	}
	if oriented > 0 {
		m.opponent.OrientationBias = float64(horizontal) / float64(oriented)
	}

	if len(ships) >= 2 {
		var total float64
		pairs := 0
		for i := range ships {
			for j := i + 1; j < len(ships); j++ {
				ar, ac := center(ships[i])
				br, bc := center(ships[j])
				total += math.Abs(ar-br) + math.Abs(ac-bc)
				pairs++
			}
		}
		m.opponent.ClusteringTendency = 1 - (total/float64(pairs))/float64(2*m.size)
	}

	prefs := make(map[int]int)
	for _, s := range ships {
		for _, c := range s {
			prefs[m.region(c)]++
		}
	}
	m.opponent.RegionPreference = prefs
}

// region partitions the board into a 3x3 grid of blocks, numbered row-major from 0.
func (m *Memory) region(c game.Coord) int {
	block := (m.size + 2) / 3
	return (c.Row-1)/block*3 + (c.Col-1)/block
}

func (m *Memory) clusteringBonus(c game.Coord) float64 {
	var bonus float64
	for _, s := range m.enemySunk() {
		for _, cell := range s {
			if d := c.Dist(cell); d <= 3 {
				bonus += float64(4-d) * 0.5
			}
		}
	}
	return bonus
}

func (m *Memory) weights() weights {
	progress := m.progress()
	return weights{
		Probability: 0.4 + 0.2*progress,
		Heat:        0.2 + 0.3*m.hitRate(),
		Density:     0.2 + 0.2*m.opponent.ClusteringTendency,
		Parity:      0.2 - 0.1*progress,
	}
}

// combined blends the layers for every valid target; other cells score zero.
func (m *Memory) combined() *game.Grid[float64] {
	w := m.weights()
	out := game.NewGrid[float64](m.size)
	for i := 0; i < m.size*m.size; i++ {
		c := game.CoordAt(i, m.size)
		if !m.IsValidTarget(c) {
			continue
		}
		out.Set(c, m.probability.At(c)*w.Probability+
			m.heat.At(c)*w.Heat+
			m.density.At(c)*w.Density+
			m.parity.At(c)*w.Parity)
	}
	return out
}

func (m *Memory) zeroClosed(g *game.Grid[float64]) {
	for i := 0; i < m.size*m.size; i++ {
		if c := game.CoordAt(i, m.size); m.forbidden.Has(c) || m.targeted.Has(c) {
			g.Set(c, 0)
		}
	}
}

func center(cells []game.Coord) (row, col float64) {
	for _, c := range cells {
		row += float64(c.Row)
		col += float64(c.Col)
	}
	n := float64(len(cells))
	return row / n, col / n
}
