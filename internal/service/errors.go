package service

import (
	"errors"
	"fmt"

	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when the request conflicts with the current state
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when no organization is attached to the request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable is returned when an optional backend is not configured
	ErrUnavailable = errors.New("service unavailable")
)

// notFoundOr maps gorm's missing-row error onto ErrNotFound and wraps anything else
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if errors.Is(err, repository.ErrNoOrganization) {
		return ErrUnauthorized
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// classifyTransitionError wraps stage engine errors with the matching service error.
// The engine error stays in the chain for callers that need the detail.
func classifyTransitionError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrUnknownStage),
		errors.Is(err, pipeline.ErrNotADeal),
		errors.Is(err, pipeline.ErrItemMismatch):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, pipeline.ErrTerminalStage),
		errors.Is(err, pipeline.ErrNotTerminal),
		errors.Is(err, pipeline.ErrStageConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
