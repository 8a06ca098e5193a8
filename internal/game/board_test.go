package game

import (
	"errors"
	"testing"
)

func standardShips() []Ship {
	return []Ship{
		{Row: 1, Col: 1, Size: 5, Horizontal: true, Name: "Carrier"},
		{Row: 3, Col: 1, Size: 4, Horizontal: true, Name: "Battleship"},
		{Row: 5, Col: 1, Size: 3, Horizontal: true, Name: "Cruiser"},
		{Row: 7, Col: 1, Size: 3, Horizontal: true, Name: "Submarine"},
		{Row: 9, Col: 1, Size: 2, Horizontal: true, Name: "Destroyer"},
	}
}

func TestFireResolvesCellsOnce(t *testing.T) {
	b := NewBoard(DefaultSize)
	if err := b.Place(standardShips()); err != nil {
		t.Fatalf("place: %v", err)
	}

	shot, err := b.Fire(Coord{1, 1})
	if err != nil || !shot.Hit || shot.Sunk {
		t.Fatalf("expected plain hit, got %+v err=%v", shot, err)
	}
	if _, err := b.Fire(Coord{1, 1}); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	shot, err = b.Fire(Coord{2, 2})
	if err != nil || shot.Hit {
		t.Fatalf("expected miss, got %+v err=%v", shot, err)
	}
	cell := b.Cell(Coord{2, 2})
	if !cell.IsMiss || cell.IsHit {
		t.Fatalf("miss cell must be miss only: %+v", cell)
	}
	if _, err := b.Fire(Coord{0, 3}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestFireReportsSunkShip(t *testing.T) {
	b := NewBoard(DefaultSize)
	if err := b.Place(standardShips()); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Fire(Coord{9, 1}); err != nil {
		t.Fatal(err)
	}
	shot, err := b.Fire(Coord{9, 2})
	if err != nil {
		t.Fatal(err)
	}
	if !shot.Sunk || shot.SunkShip == nil || shot.SunkShip.Name != "Destroyer" {
		t.Fatalf("expected destroyer sunk, got %+v", shot)
	}
	if len(shot.SunkCells) != 2 || shot.SunkCells[0] != (Coord{9, 1}) || shot.SunkCells[1] != (Coord{9, 2}) {
		t.Fatalf("unexpected sunk cells %v", shot.SunkCells)
	}
	if b.AllSunk() {
		t.Fatalf("board must not be all sunk yet")
	}
}

func TestAllSunk(t *testing.T) {
	if !NewBoard(4).AllSunk() {
		t.Fatalf("empty board is vacuously sunk")
	}
	b := NewBoard(DefaultSize)
	ships := standardShips()
	if err := b.Place(ships); err != nil {
		t.Fatal(err)
	}
	for _, s := range ships {
		for _, c := range s.Cells() {
			if b.AllSunk() {
				t.Fatalf("all sunk before %s", c)
			}
			if _, err := b.Fire(c); err != nil {
				t.Fatal(err)
			}
		}
	}
	if !b.AllSunk() {
		t.Fatalf("expected all sunk")
	}
}

func TestRedactedHidesUnhitShips(t *testing.T) {
	b := NewBoard(DefaultSize)
	if err := b.Place(standardShips()); err != nil {
		t.Fatal(err)
	}
	_, _ = b.Fire(Coord{1, 2})
	_, _ = b.Fire(Coord{2, 5})
	for r, row := range b.Redacted() {
		for c, v := range row {
			if v.HasShip && !v.IsHit {
				t.Fatalf("cell %d,%d leaks ship", r+1, c+1)
			}
		}
	}
	if !b.Redacted()[0][1].HasShip {
		t.Fatalf("hit ship cell must be visible")
	}
}

func TestOccupancyRowMajor(t *testing.T) {
	b := NewBoard(DefaultSize)
	if err := b.Place(standardShips()); err != nil {
		t.Fatal(err)
	}
	bits := b.Occupancy()
	total := 0
	for _, v := range bits {
		total += int(v)
	}
	if total != StandardFleet.Cells() {
		t.Fatalf("expected %d ship cells, got %d", StandardFleet.Cells(), total)
	}
	if bits[Coord{3, 4}.Index(DefaultSize)] != 1 || bits[Coord{3, 5}.Index(DefaultSize)] != 0 {
		t.Fatalf("occupancy index mismatch")
	}
}
