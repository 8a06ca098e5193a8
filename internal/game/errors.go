package game

import "errors"

var (
	ErrOutOfBounds     = errors.New("coordinate out of bounds")
	ErrAlreadyResolved = errors.New("cell already targeted")
	ErrOverlap         = errors.New("ships overlap")
	ErrAdjacent        = errors.New("ships touch")
	ErrComposition     = errors.New("fleet composition mismatch")
	ErrBoardOccupied   = errors.New("board already has ships")
	ErrFleetGeneration = errors.New("failed to place ships")
)
