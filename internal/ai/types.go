package ai

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty accepts easy, medium or hard (case-insensitive).
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Mode is the hunt/target state.
type Mode string

const (
	Hunt   Mode = "hunt"
	Target Mode = "target"
)

// Pattern is the hard-mode hunting pattern.
type Pattern string

const (
	Checkerboard   Pattern = "checkerboard"
	Diagonal       Pattern = "diagonal"
	Spiral         Pattern = "spiral"
	WeightedRandom Pattern = "weighted-random"
)

var patternCycle = []Pattern{Checkerboard, Diagonal, Spiral, WeightedRandom}

type Phase string

const (
	Early Phase = "early"
	Mid   Phase = "mid"
	Late  Phase = "late"
)
