package game

import (
	"fmt"
	"math/rand"
	"sort"
)

// Ship is a placement. (Row, Col) is the head cell.
type Ship struct {
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Size       int    `json:"size"`
	Horizontal bool   `json:"isHorizontal"`
	Name       string `json:"name"`
}

func (s Ship) Cells() []Coord {
	out := make([]Coord, s.Size)
	for i := 0; i < s.Size; i++ {
		if s.Horizontal {
			out[i] = Coord{s.Row, s.Col + i}
		} else {
			out[i] = Coord{s.Row + i, s.Col}
		}
	}
	return out
}

type ShipType struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type FleetSpec []ShipType

// StandardFleet: one each of sizes 5, 4, 3, 3, 2.
var StandardFleet = FleetSpec{
	{Name: "Carrier", Size: 5},
	{Name: "Battleship", Size: 4},
	{Name: "Cruiser", Size: 3},
	{Name: "Submarine", Size: 3},
	{Name: "Destroyer", Size: 2},
}

// Sizes returns ship sizes in descending order.
func (f FleetSpec) Sizes() []int {
	out := make([]int, len(f))
	for i, t := range f {
		out[i] = t.Size
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func (f FleetSpec) Cells() int {
	n := 0
	for _, t := range f {
		n += t.Size
	}
	return n
}

// ValidateFleet checks composition (one ship per type, by name and size)
// and layout (in bounds, no overlap, no touching including diagonals).
func ValidateFleet(size int, ships []Ship, spec FleetSpec) error {
	want := make(map[string]int, len(spec))
	for _, t := range spec {
		want[t.Name+"/"+fmt.Sprint(t.Size)]++
	}
	for _, s := range ships {
		k := s.Name + "/" + fmt.Sprint(s.Size)
		if want[k] == 0 {
			return fmt.Errorf("%w: unexpected %s (size %d)", ErrComposition, s.Name, s.Size)
		}
		want[k]--
	}
	for k, n := range want {
		if n != 0 {
			return fmt.Errorf("%w: missing %s", ErrComposition, k)
		}
	}
	return checkLayout(size, ships)
}

func checkLayout(size int, ships []Ship) error {
	owner := NewGrid[int](size)
	owner.Fill(-1)
	for id, s := range ships {
		if s.Size <= 0 {
			return fmt.Errorf("%w: %s has size %d", ErrOutOfBounds, s.Name, s.Size)
		}
		for _, c := range s.Cells() {
			if !c.In(size) {
				return fmt.Errorf("%w: %s at %s", ErrOutOfBounds, s.Name, c)
			}
			if other := owner.At(c); other >= 0 {
				return fmt.Errorf("%w: %s and %s at %s", ErrOverlap, ships[other].Name, s.Name, c)
			}
			for _, n := range c.Neighbors8(size) {
				if other := owner.At(n); other >= 0 && other != id {
					return fmt.Errorf("%w: %s and %s near %s", ErrAdjacent, ships[other].Name, s.Name, c)
				}
			}
		}
		for _, c := range s.Cells() {
			owner.Set(c, id)
		}
	}
	return nil
}

const (
	maxPlacementAttempts = 1000
	maxFleetAttempts     = 50
)

// FleetStats reports how hard GenerateFleet had to work.
type FleetStats struct {
	Fallbacks int // ships placed by the systematic scan
	Restarts  int // whole-fleet retries
}

// GenerateFleet places spec at random with the one-cell buffer rule. Each ship
// gets maxPlacementAttempts random tries, then a scan over every head and
// orientation from a random offset. A partial fleet is never returned.
func GenerateFleet(rng *rand.Rand, size int, spec FleetSpec) ([]Ship, FleetStats, error) {
	var st FleetStats
	for attempt := 0; attempt < maxFleetAttempts; attempt++ {
		if ships, ok := tryFleet(rng, size, spec, &st); ok {
			return ships, st, nil
		}
		st.Restarts++
	}
	return nil, st, fmt.Errorf("%w: %d ships on %dx%d", ErrFleetGeneration, len(spec), size, size)
}

func tryFleet(rng *rand.Rand, size int, spec FleetSpec, st *FleetStats) ([]Ship, bool) {
	occ := NewGrid[bool](size)
	ships := make([]Ship, 0, len(spec))
	for _, t := range spec {
		s, ok := placeRandom(rng, occ, t)
		if !ok {
			if s, ok = placeScan(rng, occ, t); !ok {
				return nil, false
			}
			st.Fallbacks++
		}
		for _, c := range s.Cells() {
			occ.Set(c, true)
		}
		ships = append(ships, s)
	}
	return ships, true
}

func placeRandom(rng *rand.Rand, occ *Grid[bool], t ShipType) (Ship, bool) {
	n := occ.Size()
	for i := 0; i < maxPlacementAttempts; i++ {
		s := Ship{Row: rng.Intn(n) + 1, Col: rng.Intn(n) + 1, Size: t.Size, Horizontal: rng.Intn(2) == 0, Name: t.Name}
		if fits(occ, s) {
			return s, true
		}
	}
	return Ship{}, false
}

func placeScan(rng *rand.Rand, occ *Grid[bool], t ShipType) (Ship, bool) {
	n := occ.Size()
	total := n * n * 2
	start := rng.Intn(total)
	for k := 0; k < total; k++ {
		i := (start + k) % total
		c := CoordAt(i/2, n)
		s := Ship{Row: c.Row, Col: c.Col, Size: t.Size, Horizontal: i%2 == 0, Name: t.Name}
		if fits(occ, s) {
			return s, true
		}
	}
	return Ship{}, false
}

func fits(occ *Grid[bool], s Ship) bool {
	n := occ.Size()
	for _, c := range s.Cells() {
		if !c.In(n) || occ.At(c) {
			return false
		}
		for _, nb := range c.Neighbors8(n) {
			if occ.At(nb) {
				return false
			}
		}
	}
	return true
}
