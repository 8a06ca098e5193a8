package game

import "fmt"

// Coord is a board position. Rows and columns are 1-indexed.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string { return fmt.Sprintf("%d,%d", c.Row, c.Col) }

// In reports whether c lies on a size x size board.
func (c Coord) In(size int) bool {
	return c.Row >= 1 && c.Row <= size && c.Col >= 1 && c.Col <= size
}

// Index is the row-major 0-based offset of c. It is the only place where
// 1-indexed coordinates are translated to slice offsets.
func (c Coord) Index(size int) int { return (c.Row-1)*size + (c.Col - 1) }

// CoordAt is the inverse of Index.
func CoordAt(idx, size int) Coord { return Coord{Row: idx/size + 1, Col: idx%size + 1} }

// Dist is the Manhattan distance.
func (c Coord) Dist(o Coord) int { return abs(c.Row-o.Row) + abs(c.Col-o.Col) }

// Touches reports Chebyshev distance <= 1 (the same cell counts).
func (c Coord) Touches(o Coord) bool { return abs(c.Row-o.Row) <= 1 && abs(c.Col-o.Col) <= 1 }

// Neighbors4 returns the in-bounds orthogonal neighbours: up, down, left, right.
func (c Coord) Neighbors4(size int) []Coord {
	out := make([]Coord, 0, 4)
	for _, n := range []Coord{{c.Row - 1, c.Col}, {c.Row + 1, c.Col}, {c.Row, c.Col - 1}, {c.Row, c.Col + 1}} {
		if n.In(size) {
			out = append(out, n)
		}
	}
	return out
}

// Neighbors8 returns the in-bounds cells around c, diagonals included.
func (c Coord) Neighbors8(size int) []Coord {
	out := make([]Coord, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Coord{c.Row + dr, c.Col + dc}
			if n.In(size) {
				out = append(out, n)
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Grid is a size x size field addressed by 1-indexed coordinates.
type Grid[T any] struct {
	size  int
	cells []T
}

func NewGrid[T any](size int) *Grid[T] {
	return &Grid[T]{size: size, cells: make([]T, size*size)}
}

func (g *Grid[T]) Size() int        { return g.size }
func (g *Grid[T]) At(c Coord) T     { return g.cells[c.Index(g.size)] }
func (g *Grid[T]) Set(c Coord, v T) { g.cells[c.Index(g.size)] = v }
func (g *Grid[T]) Ptr(c Coord) *T   { return &g.cells[c.Index(g.size)] }
func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// Each visits cells in row-major order.
func (g *Grid[T]) Each(fn func(c Coord, v T)) {
	for i, v := range g.cells {
		fn(CoordAt(i, g.size), v)
	}
}

// Rows copies the grid into row slices; rows[0] is row 1.
func (g *Grid[T]) Rows() [][]T {
	out := make([][]T, g.size)
	for r := 0; r < g.size; r++ {
		out[r] = append([]T(nil), g.cells[r*g.size:(r+1)*g.size]...)
	}
	return out
}

func (g *Grid[T]) Clone() *Grid[T] {
	return &Grid[T]{size: g.size, cells: append([]T(nil), g.cells...)}
}
