package ai

import (
	"math"
	"testing"

	"battleship-ai/internal/game"
)

var standardSizes = []int{5, 4, 3, 3, 2}

func at(r, c int) game.Coord { return game.Coord{Row: r, Col: c} }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// sinkPair records two hits at (r,c) and (r,c+1), the second sinking them.
func sinkPair(m *Memory, r, c int) {
	m.record(at(r, c), true, nil)
	m.record(at(r, c+1), true, []game.Coord{at(r, c), at(r, c+1)})
}

func TestParityFollowsSmallestRemainingShip(t *testing.T) {
	tests := []struct {
		name  string
		fleet []int
		sink  bool
		cells map[game.Coord]float64
	}{
		{"smallest two", standardSizes, false, map[game.Coord]float64{at(1, 1): 5, at(1, 2): 1, at(4, 6): 5, at(4, 7): 1}},
		{"smallest three", []int{5, 4, 3}, false, map[game.Coord]float64{at(1, 2): 5, at(1, 1): 2, at(3, 3): 5, at(3, 4): 2}},
		{"smallest four", []int{5, 4}, false, map[game.Coord]float64{at(1, 1): 3, at(1, 2): 3, at(7, 9): 3}},
		{"destroyer sunk", standardSizes, true, map[game.Coord]float64{at(9, 3): 5, at(9, 4): 2, at(1, 6): 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemory(game.DefaultSize, tt.fleet)
			if tt.sink {
				sinkPair(m, 5, 5)
			}
			for c, want := range tt.cells {
				if got := m.parity.At(c); got != want {
					t.Fatalf("parity %v = %v, want %v", c, got, want)
				}
			}
		})
	}
}

func TestHeatDecaysAndInjectsAroundHits(t *testing.T) {
	m := newMemory(game.DefaultSize, standardSizes)
	m.record(at(5, 5), true, nil)

	for _, tc := range []struct {
		c    game.Coord
		want float64
	}{
		{at(5, 5), 0}, // targeted
		{at(5, 6), 5},
		{at(5, 7), 10.0 / 3},
		{at(6, 6), 10.0 / 3},
		{at(7, 7), 2},
		{at(5, 8), 0},
	} {
		if got := m.heat.At(tc.c); !near(got, tc.want) {
			t.Fatalf("heat %v = %v, want %v", tc.c, got, tc.want)
		}
	}

	// A far miss decays the map and injects around the live hit again.
	m.record(at(1, 1), false, nil)
	if got, want := m.heat.At(at(5, 6)), 5*0.95+5; !near(got, want) {
		t.Fatalf("heat after miss = %v, want %v", got, want)
	}

	// Updates that are not shots leave heat alone.
	before := m.heat.At(at(5, 6))
	m.refresh(false)
	if got := m.heat.At(at(5, 6)); got != before {
		t.Fatalf("heat changed without a shot: %v -> %v", before, got)
	}

	// Once the ship sinks there is no live hit: heat only decays.
	m.record(at(5, 6), true, []game.Coord{at(5, 5), at(5, 6)})
	if got, want := m.heat.At(at(5, 3)), (10.0/3*0.95+10.0/3)*0.95; !near(got, want) {
		t.Fatalf("heat after sink = %v, want %v", got, want)
	}
	if got := m.heat.At(at(4, 4)); got != 0 {
		t.Fatalf("heat on a cell touching the sunk ship = %v", got)
	}
}

func TestEngineShipSunkDoesNotAddHeat(t *testing.T) {
	e := New(game.DefaultSize, WithSeed(1), WithDifficulty(Hard))
	e.ProcessResult(at(2, 2), true, nil)
	e.ProcessResult(at(8, 8), true, nil)
	before := e.mem.heat.At(at(8, 6))
	e.ShipSunk([]game.Coord{at(2, 2)})
	if got := e.mem.heat.At(at(8, 6)); got != before {
		t.Fatalf("ShipSunk changed heat near a live hit: %v -> %v", before, got)
	}
}

func TestLayersZeroOnClosedCells(t *testing.T) {
	m := newMemory(game.DefaultSize, standardSizes)
	m.record(at(1, 1), false, nil)
	sinkPair(m, 5, 5)

	closed := []game.Coord{at(1, 1), at(4, 4), at(4, 7), at(5, 5), at(5, 7), at(6, 6)}
	layers := map[string]*game.Grid[float64]{"probability": m.probability, "density": m.density, "heat": m.heat}
	for name, g := range layers {
		for _, c := range closed {
			if got := g.At(c); got != 0 {
				t.Fatalf("%s %v = %v, want 0", name, c, got)
			}
		}
	}
	if m.probability.At(at(9, 9)) <= 0 || m.density.At(at(9, 9)) <= 0 {
		t.Fatalf("open cell scored zero: probability %v density %v", m.probability.At(at(9, 9)), m.density.At(at(9, 9)))
	}
	if got := m.RemainingSizes(); len(got) != 4 {
		t.Fatalf("remaining sizes = %v", got)
	}

	combined := m.combined()
	for _, c := range allCells(game.DefaultSize) {
		if valid, score := m.IsValidTarget(c), combined.At(c); valid != (score > 0) {
			t.Fatalf("combined %v = %v, valid target %v", c, score, valid)
		}
	}
}

func TestPatternAndThresholdAdapt(t *testing.T) {
	misses := []game.Coord{at(1, 1), at(1, 3), at(1, 5), at(1, 7), at(1, 9), at(3, 1), at(3, 3)}
	tests := []struct {
		name      string
		misses    int
		hits      []game.Coord
		pattern   Pattern
		threshold float64
	}{
		{"too few shots", 4, nil, Checkerboard, 0.7},
		{"five cold shots", 5, nil, Diagonal, 0.5},
		{"six cold shots", 6, nil, Spiral, 0.5},
		{"seven cold shots", 7, nil, WeightedRandom, 0.5},
		{"hot streak in target mode", 2, []game.Coord{at(6, 5), at(6, 6), at(6, 7)}, Checkerboard, 0.9},
		{"one in five", 4, []game.Coord{at(8, 8)}, Checkerboard, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemory(game.DefaultSize, standardSizes)
			for _, c := range misses[:tt.misses] {
				m.record(c, false, nil)
			}
			for _, c := range tt.hits {
				m.record(c, true, nil)
			}
			if m.pattern != tt.pattern {
				t.Fatalf("pattern = %s, want %s", m.pattern, tt.pattern)
			}
			if !near(m.adaptiveThreshold, tt.threshold) {
				t.Fatalf("threshold = %v, want %v", m.adaptiveThreshold, tt.threshold)
			}
		})
	}
}

func TestPhaseThresholds(t *testing.T) {
	tests := []struct {
		shots int
		want  Phase
	}{
		{0, Early},
		{29, Early},
		{30, Mid},
		{69, Mid},
		{70, Late},
	}
	cells := allCells(game.DefaultSize)
	for _, tt := range tests {
		m := newMemory(game.DefaultSize, standardSizes)
		for _, c := range cells[:tt.shots] {
			m.record(c, false, nil)
		}
		if m.phase != tt.want {
			t.Fatalf("%d shots: phase = %s, want %s", tt.shots, m.phase, tt.want)
		}
	}
}

func TestCombinedRowsMatchMemory(t *testing.T) {
	e := New(game.DefaultSize, WithSeed(2), WithDifficulty(Hard))
	e.ProcessResult(at(4, 4), true, nil)
	e.ProcessResult(at(9, 2), false, nil)

	rows := e.Combined()
	want := e.mem.combined()
	if len(rows) != game.DefaultSize {
		t.Fatalf("rows = %d", len(rows))
	}
	for _, c := range allCells(game.DefaultSize) {
		if got := rows[c.Row-1][c.Col-1]; got != want.At(c) {
			t.Fatalf("combined %v = %v, want %v", c, got, want.At(c))
		}
	}
	if rows[3][3] != 0 || rows[8][1] != 0 {
		t.Fatalf("targeted cells should score zero")
	}
	if rows[3][4] <= rows[0][9] {
		t.Fatalf("cell next to a hit (%v) should outscore a far corner (%v)", rows[3][4], rows[0][9])
	}
}
