package ai

import (
	"math/rand"

	"battleship-ai/internal/game"
)

// hunt searches for a new ship. Candidates are first narrowed to the cells
// that admit the most placements of the largest remaining ship; the current
// pattern then picks among them by combined score.
func (s hardStrategy) hunt(m *Memory, rng *rand.Rand) (game.Coord, bool) {
	combined := m.combined()
	band := m.strategicBand()
	if len(band) > 0 {
		if c, ok := m.patternMove(rng, band, combined); ok {
			return c, true
		}
		return m.bestStrategic(band), true
	}
	valid := m.validTargets()
	if c, ok := m.patternMove(rng, valid, combined); ok {
		return c, true
	}
	return best(valid, combined)
}

func (m *Memory) largestRemaining() int {
	largest := 0
	for _, s := range m.RemainingSizes() {
		largest = max(largest, s)
	}
	return largest
}

// strategicBand returns the valid cells with the highest positive placement
// count for the largest remaining ship.
func (m *Memory) strategicBand() []game.Coord {
	largest := m.largestRemaining()
	if largest == 0 {
		return nil
	}
	var band []game.Coord
	top := 0
	for _, c := range m.validTargets() {
		h, v := m.placementsCovering(c, largest)
		switch n := h + v; {
		case n > top:
			top, band = n, []game.Coord{c}
		case n == top && n > 0:
			band = append(band, c)
		}
	}
	return band
}

// strategicValue weighs the largest ship heavily, then smaller ships and
// distance from the edge.
func (m *Memory) strategicValue(c game.Coord) float64 {
	largest := m.largestRemaining()
	var v float64
	for _, size := range m.RemainingSizes() {
		h, w := m.placementsCovering(c, size)
		if size == largest {
			v += 10 * float64(h+w)
		} else {
			v += 2 * float64(h+w)
		}
	}
	return v + 2*float64(m.edgeDist(c))
}

func (m *Memory) bestStrategic(cells []game.Coord) game.Coord {
	bestC, bestV := cells[0], m.strategicValue(cells[0])
	for _, c := range cells[1:] {
		if v := m.strategicValue(c); v > bestV {
			bestC, bestV = c, v
		}
	}
	return bestC
}

func (m *Memory) edgeDist(c game.Coord) int {
	return min(c.Row-1, c.Col-1, m.size-c.Row, m.size-c.Col)
}

func (m *Memory) patternMove(rng *rand.Rand, cells []game.Coord, scores *game.Grid[float64]) (game.Coord, bool) {
	switch m.pattern {
	case Checkerboard:
		return best(filter(cells, func(c game.Coord) bool { return (c.Row+c.Col)%2 == 0 }), scores)
	case Diagonal:
		return best(filter(cells, func(c game.Coord) bool { return (c.Row-c.Col)%3 == 0 }), scores)
	case Spiral:
		in := make(map[game.Coord]bool, len(cells))
		for _, c := range cells {
			in[c] = true
		}
		for _, c := range spiral(m.size) {
			if in[c] {
				return c, true
			}
		}
		return game.Coord{}, false
	case WeightedRandom:
		return weightedPick(rng, cells, scores)
	}
	return game.Coord{}, false
}

// spiral lists every cell walking outwards from the centre: right, down,
// left, up with growing leg lengths.
func spiral(size int) []game.Coord {
	mid := (size + 1) / 2
	c := game.Coord{Row: mid, Col: mid}
	out := []game.Coord{c}
	dirs := [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	for leg, d := 1, 0; len(out) < size*size; d++ {
		step := dirs[d%4]
		for i := 0; i < leg; i++ {
			c = game.Coord{Row: c.Row + step[0], Col: c.Col + step[1]}
			if c.In(size) {
				out = append(out, c)
			}
		}
		if d%2 == 1 {
			leg++
		}
	}
	return out
}

func weightedPick(rng *rand.Rand, cells []game.Coord, scores *game.Grid[float64]) (game.Coord, bool) {
	if len(cells) == 0 {
		return game.Coord{}, false
	}
	total := 0.0
	for _, c := range cells {
		total += max(1, scores.At(c))
	}
	r := rng.Float64() * total
	for _, c := range cells {
		r -= max(1, scores.At(c))
		if r < 0 {
			return c, true
		}
	}
	return cells[len(cells)-1], true
}

// best returns the highest scoring cell; ties keep the earliest.
func best(cells []game.Coord, scores *game.Grid[float64]) (game.Coord, bool) {
	if len(cells) == 0 {
		return game.Coord{}, false
	}
	bestC := cells[0]
	for _, c := range cells[1:] {
		if scores.At(c) > scores.At(bestC) {
			bestC = c
		}
	}
	return bestC, true
}

func filter(cells []game.Coord, keep func(game.Coord) bool) []game.Coord {
	var out []game.Coord
	for _, c := range cells {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
