package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotPlaying      = errors.New("game is not in progress")
	ErrNotSetup        = errors.New("ships can only be placed during setup")
	ErrOutOfTurn       = errors.New("not your turn")
	ErrAlreadyResolved = errors.New("cell already attacked")
	ErrOutOfBounds     = errors.New("cell out of bounds")
	ErrInvalidFleet    = errors.New("invalid fleet placement")
	ErrFleetGeneration = errors.New("ai fleet generation failed")
	ErrBoardExhausted  = errors.New("no cells left to attack")
	ErrNotFinished     = errors.New("game is not finished")
	ErrNoCommitment    = errors.New("ai fleet has no commitment")
)

// Kind groups rule errors the way callers report them.
type Kind string

const (
	KindSequencing Kind = "sequencing"
	KindValidation Kind = "validation"
	KindRedundant  Kind = "redundant"
	KindResource   Kind = "resource"
)

// RuleError is a rejected operation. State is never modified when one is returned.
type RuleError struct {
	Kind Kind
	Err  error
}

func (e *RuleError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *RuleError) Unwrap() error { return e.Err }

func rule(kind Kind, err error) *RuleError { return &RuleError{Kind: kind, Err: err} }

// KindOf returns the kind of a RuleError anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}
