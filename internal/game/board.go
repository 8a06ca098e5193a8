package game

import "fmt"

// DefaultSize is the classic 10x10 board.
const DefaultSize = 10

// Cell is one square of a player's board. ShipID is -1 for water.
type Cell struct {
	HasShip bool `json:"hasShip"`
	IsHit   bool `json:"isHit"`
	IsMiss  bool `json:"isMiss"`
	ShipID  int  `json:"shipId"`
}

func (c Cell) Resolved() bool { return c.IsHit || c.IsMiss }

// VisibleCell is what the opponent may see of a cell.
type VisibleCell struct {
	IsHit   bool `json:"isHit"`
	IsMiss  bool `json:"isMiss"`
	HasShip bool `json:"hasShip"`
}

// Board holds one player's cells and the ship registry (index == ShipID).
type Board struct {
	cells *Grid[Cell]
	ships []Ship
}

func NewBoard(size int) *Board {
	g := NewGrid[Cell](size)
	g.Fill(Cell{ShipID: -1})
	return &Board{cells: g}
}

func (b *Board) Size() int         { return b.cells.Size() }
func (b *Board) Cell(c Coord) Cell { return b.cells.At(c) }

func (b *Board) Ships() []Ship { return append([]Ship(nil), b.ships...) }

// Place puts ships on an empty board. Composition is not checked here.
func (b *Board) Place(ships []Ship) error {
	if len(b.ships) > 0 {
		return ErrBoardOccupied
	}
	if err := checkLayout(b.Size(), ships); err != nil {
		return err
	}
	for id, s := range ships {
		for _, c := range s.Cells() {
			cell := b.cells.Ptr(c)
			cell.HasShip = true
			cell.ShipID = id
		}
	}
	b.ships = append([]Ship(nil), ships...)
	return nil
}

// Shot is the outcome of firing at a board.
type Shot struct {
	Coord     Coord   `json:"coord"`
	Hit       bool    `json:"hit"`
	ShipID    int     `json:"shipId"`
	Sunk      bool    `json:"sunk"`
	SunkShip  *Ship   `json:"sunkShip,omitempty"`
	SunkCells []Coord `json:"sunkCells,omitempty"`
}

// Fire resolves a shot. A resolved cell is never fired at again.
func (b *Board) Fire(c Coord) (Shot, error) {
	if !c.In(b.Size()) {
		return Shot{}, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	cell := b.cells.Ptr(c)
	if cell.Resolved() {
		return Shot{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, c)
	}
	shot := Shot{Coord: c, ShipID: cell.ShipID}
	if !cell.HasShip {
		cell.IsMiss = true
		return shot, nil
	}
	cell.IsHit = true
	shot.Hit = true
	if b.ShipSunk(cell.ShipID) {
		s := b.ships[cell.ShipID]
		shot.Sunk = true
		shot.SunkShip = &s
		shot.SunkCells = s.Cells()
	}
	return shot, nil
}

// ShipSunk reports whether every cell of ship id is hit.
func (b *Board) ShipSunk(id int) bool {
	if id < 0 || id >= len(b.ships) {
		return false
	}
	for _, c := range b.ships[id].Cells() {
		if !b.cells.At(c).IsHit {
			return false
		}
	}
	return true
}

// AllSunk is the win condition: every ship cell is hit. True for an empty board.
func (b *Board) AllSunk() bool {
	all := true
	b.cells.Each(func(_ Coord, c Cell) {
		if c.HasShip && !c.IsHit {
			all = false
		}
	})
	return all
}

func (b *Board) Rows() [][]Cell { return b.cells.Rows() }

// Redacted hides ship presence on cells that were not hit.
func (b *Board) Redacted() [][]VisibleCell {
	rows := b.cells.Rows()
	out := make([][]VisibleCell, len(rows))
	for r, row := range rows {
		out[r] = make([]VisibleCell, len(row))
		for c, cell := range row {
			out[r][c] = VisibleCell{IsHit: cell.IsHit, IsMiss: cell.IsMiss, HasShip: cell.IsHit && cell.HasShip}
		}
	}
	return out
}

// Occupancy flattens the board row-major: 0=water, 1=ship.
func (b *Board) Occupancy() []uint8 {
	out := make([]uint8, 0, b.Size()*b.Size())
	b.cells.Each(func(_ Coord, c Cell) {
		if c.HasShip {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	})
	return out
}
