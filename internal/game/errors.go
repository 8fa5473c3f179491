package game

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProject is returned when the selected project is not in the catalog
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownFinancing is returned when the selected financing option is not in the catalog
	ErrUnknownFinancing = errors.New("unknown financing option")
	// ErrInvalidDecision is returned for a decision other than Continue, Delay or Abandon
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrOutOfSequence is returned when the current phase does not accept the input
	ErrOutOfSequence = errors.New("input out of sequence")
	// ErrNotYourTurn is returned when a turn is submitted for a player who is not active
	ErrNotYourTurn = fmt.Errorf("%w: not your turn", ErrOutOfSequence)
	// ErrInvalidRoster is returned when setup does not name exactly the configured number of distinct players
	ErrInvalidRoster = errors.New("invalid player roster")
)
