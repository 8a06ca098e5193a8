package game

import (
	"errors"
	"math/rand"
	"testing"
)

func TestValidateFleet(t *testing.T) {
	tests := []struct {
		name string
		mut  func([]Ship) []Ship
		want error
	}{
		{"valid", func(s []Ship) []Ship { return s }, nil},
		{"missing ship", func(s []Ship) []Ship { return s[:4] }, ErrComposition},
		{"renamed ship", func(s []Ship) []Ship { s[4].Name = "Tug"; return s }, ErrComposition},
		{"wrong size", func(s []Ship) []Ship { s[0].Size = 4; return s }, ErrComposition},
		{"out of bounds", func(s []Ship) []Ship { s[0].Col = 7; return s }, ErrOutOfBounds},
		{"overlap", func(s []Ship) []Ship { s[1].Row = 1; s[1].Col = 3; s[1].Horizontal = false; return s }, ErrOverlap},
		{"side by side", func(s []Ship) []Ship { s[1].Row = 2; return s }, ErrAdjacent},
		{"diagonal touch", func(s []Ship) []Ship {
			s[4] = Ship{Row: 2, Col: 6, Size: 2, Horizontal: false, Name: "Destroyer"}
			return s
		}, ErrAdjacent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFleet(DefaultSize, tc.mut(standardShips()), StandardFleet)
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGenerateFleetRespectsBuffer(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		ships, _, err := GenerateFleet(rng, DefaultSize, StandardFleet)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if err := ValidateFleet(DefaultSize, ships, StandardFleet); err != nil {
			t.Fatalf("generated fleet invalid: %v (%+v)", err, ships)
		}
	}
}

func TestGenerateFleetTightBoard(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ships, _, err := GenerateFleet(rng, 7, StandardFleet)
	if err != nil {
		t.Fatalf("7x7 should fit the fleet: %v", err)
	}
	if err := ValidateFleet(7, ships, StandardFleet); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateFleetImpossible(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ships, st, err := GenerateFleet(rng, 4, StandardFleet)
	if !errors.Is(err, ErrFleetGeneration) {
		t.Fatalf("expected ErrFleetGeneration, got %v", err)
	}
	if ships != nil {
		t.Fatalf("partial fleet returned: %+v", ships)
	}
	if st.Restarts == 0 {
		t.Fatalf("expected restarts to be counted")
	}
}
