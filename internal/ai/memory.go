package ai

import (
	"sort"

	"github.com/dolthub/swiss"

	"battleship-ai/internal/game"
)

type cellSet struct {
	m *swiss.Map[game.Coord, struct{}]
}

func newCellSet(hint int) cellSet {
	return cellSet{m: swiss.NewMap[game.Coord, struct{}](uint32(hint))}
}

func (s cellSet) Has(c game.Coord) bool { return s.m.Has(c) }
func (s cellSet) Add(c game.Coord)      { s.m.Put(c, struct{}{}) }
func (s cellSet) Delete(c game.Coord)   { s.m.Delete(c) }
func (s cellSet) Len() int              { return s.m.Count() }

// Sorted returns the members in row-major order.
func (s cellSet) Sorted() []game.Coord {
	out := make([]game.Coord, 0, s.m.Count())
	s.m.Iter(func(c game.Coord, _ struct{}) bool {
		out = append(out, c)
		return false
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Shot is one entry of the AI's move history.
type Shot struct {
	Coord game.Coord `json:"coord"`
	Hit   bool       `json:"hit"`
}

type sunkShip struct {
	cells []game.Coord
	own   bool // one of the AI's own ships, reported by the opponent's fire
}

// OpponentModel is what the AI has learned about how the opponent places ships.
type OpponentModel struct {
	OrientationBias    float64     `json:"orientationBias"` // share of horizontal ships
	ClusteringTendency float64     `json:"clusteringTendency"`
	RegionPreference   map[int]int `json:"regionPreference"` // 3x3 partition -> sunk cells seen
}

// Memory is everything the AI knows about the opponent's board. It is built
// only from the results it is told about and never reads a board directly.
type Memory struct {
	size  int
	fleet []int

	hits    []game.Coord // live hits, oldest first
	misses  []game.Coord
	sunk    []sunkShip
	lastHit *game.Coord
	history []Shot

	mode              Mode
	phase             Phase
	pattern           Pattern
	patternIdx        int
	adaptiveThreshold float64
	opponent          OpponentModel

	probability *game.Grid[float64]
	heat        *game.Grid[float64]
	density     *game.Grid[float64]
	parity      *game.Grid[float64]

	queue     *targetQueue
	targeted  cellSet // every cell the AI has attacked
	hitSet    cellSet // live hits
	missSet   cellSet
	forbidden cellSet // sunk cells and their 8-neighbourhoods
}

func newMemory(size int, fleet []int) *Memory {
	n := size * size
	m := &Memory{
		size:              size,
		fleet:             append([]int(nil), fleet...),
		mode:              Hunt,
		phase:             Early,
		pattern:           Checkerboard,
		adaptiveThreshold: 0.7,
		opponent:          OpponentModel{OrientationBias: 0.5, ClusteringTendency: 0.5, RegionPreference: map[int]int{}},
		probability:       game.NewGrid[float64](size),
		heat:              game.NewGrid[float64](size),
		density:           game.NewGrid[float64](size),
		parity:            game.NewGrid[float64](size),
		queue:             newTargetQueue(),
		targeted:          newCellSet(n),
		hitSet:            newCellSet(n),
		missSet:           newCellSet(n),
		forbidden:         newCellSet(n),
	}
	m.refresh(false)
	return m
}

func (m *Memory) HasBeenTargeted(c game.Coord) bool { return m.targeted.Has(c) }

// IsValidTarget: on the board, never attacked, not touching a sunk ship.
func (m *Memory) IsValidTarget(c game.Coord) bool {
	return c.In(m.size) && !m.targeted.Has(c) && !m.forbidden.Has(c)
}

// open reports whether c could still hold an undiscovered ship cell or a live hit.
func (m *Memory) open(c game.Coord) bool {
	return c.In(m.size) && !m.missSet.Has(c) && !m.forbidden.Has(c)
}

func (m *Memory) canPlace(head game.Coord, size int, horizontal bool) bool {
	for i := 0; i < size; i++ {
		if !m.open(offset(head, i, horizontal)) {
			return false
		}
	}
	return true
}

// placementsCovering counts valid horizontal and vertical placements of a
// ship of the given size that include c.
func (m *Memory) placementsCovering(c game.Coord, size int) (h, v int) {
	for start := max(1, c.Col-size+1); start <= min(c.Col, m.size-size+1); start++ {
		if m.canPlace(game.Coord{Row: c.Row, Col: start}, size, true) {
			h++
		}
	}
	for start := max(1, c.Row-size+1); start <= min(c.Row, m.size-size+1); start++ {
		if m.canPlace(game.Coord{Row: start, Col: c.Col}, size, false) {
			v++
		}
	}
	return h, v
}

// RemainingSizes is the enemy fleet minus the enemy ships already sunk.
func (m *Memory) RemainingSizes() []int {
	remaining := append([]int(nil), m.fleet...)
	for _, s := range m.sunk {
		if s.own {
			continue
		}
		for i, size := range remaining {
			if size == len(s.cells) {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return remaining
}

func (m *Memory) validTargets() []game.Coord {
	var out []game.Coord
	for i := 0; i < m.size*m.size; i++ {
		if c := game.CoordAt(i, m.size); m.IsValidTarget(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) untargeted() []game.Coord {
	var out []game.Coord
	for i := 0; i < m.size*m.size; i++ {
		if c := game.CoordAt(i, m.size); !m.targeted.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) enemySunk() [][]game.Coord {
	var out [][]game.Coord
	for _, s := range m.sunk {
		if !s.own {
			out = append(out, s.cells)
		}
	}
	return out
}

// record applies the outcome of the AI's own shot.
func (m *Memory) record(c game.Coord, hit bool, sunkCells []game.Coord) {
	m.targeted.Add(c)
	m.history = append(m.history, Shot{Coord: c, Hit: hit})
	m.queue.Remove(c)

	if hit {
		m.hits = append(m.hits, c)
		m.hitSet.Add(c)
		last := c
		m.lastHit = &last
		m.mode = Target
		if len(sunkCells) > 0 {
			m.sink(sunkCells)
		} else {
			m.addAdjacentTargets(c)
		}
	} else {
		m.misses = append(m.misses, c)
		m.missSet.Add(c)
	}

	if m.queue.Len() == 0 {
		m.rebuildQueue()
	}
	if len(m.hits) == 0 {
		m.queue.Clear()
		m.mode = Hunt
	}
	m.rescoreQueue()
	m.refresh(true)
	m.adapt()
}

// sink registers a sunk ship: its cells leave the live hits and the queue,
// and every cell touching it becomes forbidden.
func (m *Memory) sink(cells []game.Coord) {
	m.sunk = append(m.sunk, sunkShip{cells: append([]game.Coord(nil), cells...)})
	for _, c := range cells {
		if !c.In(m.size) {
			continue
		}
		m.forbidden.Add(c)
		for _, n := range c.Neighbors8(m.size) {
			m.forbidden.Add(n)
		}
	}

	live := m.hits[:0]
	for _, h := range m.hits {
		if contains(cells, h) {
			m.hitSet.Delete(h)
			continue
		}
		live = append(live, h)
	}
	m.hits = live
	if m.lastHit != nil && contains(cells, *m.lastHit) {
		m.lastHit = nil
		if n := len(m.hits); n > 0 {
			last := m.hits[n-1]
			m.lastHit = &last
		}
	}

	m.queue.Prune(m.IsValidTarget)
	if len(m.hits) > 0 {
		m.rebuildQueue()
		m.mode = Target
	} else {
		m.queue.Clear()
		m.mode = Hunt
	}
}

func (m *Memory) addAdjacentTargets(c game.Coord) {
	for _, n := range c.Neighbors4(m.size) {
		if m.IsValidTarget(n) {
			m.queue.Push(n, m.directionPriority(n, n.Row == c.Row))
		}
	}
}

func (m *Memory) rebuildQueue() {
	for _, h := range m.hits {
		m.addAdjacentTargets(h)
	}
}

// directionPriority favours cells lined up with other live hits.
func (m *Memory) directionPriority(c game.Coord, horizontal bool) float64 {
	p := 1.0
	for _, h := range m.hits {
		if horizontal && h.Row == c.Row && abs(h.Col-c.Col) <= 2 {
			p += 10
		}
		if !horizontal && h.Col == c.Col && abs(h.Row-c.Row) <= 2 {
			p += 10
		}
	}
	if m.lastHit != nil {
		if horizontal && m.lastHit.Row == c.Row || !horizontal && m.lastHit.Col == c.Col {
			p += 5
		}
	}
	if horizontal {
		p += 2 * m.opponent.OrientationBias
	} else {
		p += 2 * (1 - m.opponent.OrientationBias)
	}
	return p
}

// rescoreQueue orders the queue by distance to the last hit, then by priority.
func (m *Memory) rescoreQueue() {
	last := m.lastHit
	m.queue.Rescore(func(c game.Coord, base float64) float64 {
		if last == nil {
			return base
		}
		return base - 1000*float64(c.Dist(*last))
	})
}

// adapt switches the hunting pattern when the last ten shots hit less than
// 20% of the time, and tracks the threshold used by local density scoring.
func (m *Memory) adapt() {
	recent := m.history[max(0, len(m.history)-10):]
	if len(recent) < 5 {
		return
	}
	hits := 0
	for _, s := range recent {
		if s.Hit {
			hits++
		}
	}
	rate := float64(hits) / float64(len(recent))
	if rate < 0.2 && m.mode == Hunt {
		m.patternIdx = (m.patternIdx + 1) % len(patternCycle)
		m.pattern = patternCycle[m.patternIdx]
	}
	m.adaptiveThreshold = clamp(rate+0.3, 0.5, 0.9)
}

// Snapshot is a copy of the AI memory for diagnostics and tests.
type Snapshot struct {
	Mode              Mode           `json:"mode"`
	Phase             Phase          `json:"phase"`
	Pattern           Pattern        `json:"pattern"`
	Hits              []game.Coord   `json:"hits"`
	Misses            []game.Coord   `json:"misses"`
	Forbidden         []game.Coord   `json:"forbidden"`
	SunkShips         [][]game.Coord `json:"sunkShips"`
	Queue             []game.Coord   `json:"queue"`
	LastHit           *game.Coord    `json:"lastHit,omitempty"`
	Shots             int            `json:"shots"`
	AdaptiveThreshold float64        `json:"adaptiveThreshold"`
	Opponent          OpponentModel  `json:"opponent"`
	Remaining         []int          `json:"remaining"`
}

func (m *Memory) snapshot() Snapshot {
	s := Snapshot{
		Mode:              m.mode,
		Phase:             m.phase,
		Pattern:           m.pattern,
		Hits:              append([]game.Coord(nil), m.hits...),
		Misses:            append([]game.Coord(nil), m.misses...),
		Forbidden:         m.forbidden.Sorted(),
		Queue:             m.queue.Items(),
		Shots:             len(m.history),
		AdaptiveThreshold: m.adaptiveThreshold,
		Opponent:          m.opponent,
		Remaining:         m.RemainingSizes(),
	}
	for _, sk := range m.sunk {
		s.SunkShips = append(s.SunkShips, append([]game.Coord(nil), sk.cells...))
	}
	if m.lastHit != nil {
		last := *m.lastHit
		s.LastHit = &last
	}
	return s
}

func offset(head game.Coord, i int, horizontal bool) game.Coord {
	if horizontal {
		return game.Coord{Row: head.Row, Col: head.Col + i}
	}
	return game.Coord{Row: head.Row + i, Col: head.Col}
}

func contains(cells []game.Coord, c game.Coord) bool {
	for _, x := range cells {
		if x == c {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
