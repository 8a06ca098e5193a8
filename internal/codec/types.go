// Package codec holds the JSON documents the CLI reads and writes.
package codec

import (
	"encoding/json"
	"fmt"
	"os"

	"battleship-ai/internal/game"
	"battleship-ai/internal/zk"
)

// FleetFile is a placed fleet, as produced by `battleship fleet` and
// accepted when setting up a match.
type FleetFile struct {
	GridSize int         `json:"gridSize"`
	Ships    []game.Ship `json:"ships"`
}

// Validate checks the fleet against the standard composition and layout rules.
func (f FleetFile) Validate() error {
	if f.GridSize <= 0 {
		return fmt.Errorf("codec: grid size %d", f.GridSize)
	}
	return game.ValidateFleet(f.GridSize, f.Ships, game.StandardFleet)
}

// ShotProofPayload is a proof for one AI-board cell plus its public inputs.
type ShotProofPayload struct {
	Proof  []byte        `json:"proof"`
	Public zk.ShotPublic `json:"public"`
	Coord  game.Coord    `json:"coord"`
}

func SaveJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("codec: decode %s: %w", path, err)
	}
	return nil
}
