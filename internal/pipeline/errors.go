package pipeline

import "errors"

// Stage transition errors
var (
	// ErrNotADeal is returned when a quote or invoice item is asked to change stage
	ErrNotADeal = errors.New("only deal items can change stage")

	// ErrItemMismatch is returned when the pipeline item does not describe the given deal
	ErrItemMismatch = errors.New("pipeline item does not match deal")

	// ErrUnknownStage is returned when the target stage is not in the organization's stage set
	ErrUnknownStage = errors.New("unknown pipeline stage")

	// ErrTerminalStage is returned when a closed deal is moved without being reopened first
	ErrTerminalStage = errors.New("deal is in a terminal stage")

	// ErrNotTerminal is returned when reopening a deal that is still open
	ErrNotTerminal = errors.New("deal is not in a terminal stage")

	// ErrStageConflict is returned when the caller's view of the current stage is stale
	ErrStageConflict = errors.New("deal stage has changed")
)
