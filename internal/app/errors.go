package app

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the orchestrator. Callers match them with errors.Is; the wrapped
// message carries the specific reason.
var (
	ErrValidation             = errors.New("validation failed")
	ErrDuplicateResource      = errors.New("resource already exists")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrNotFound               = errors.New("not found")
)

// PartialDispatchFailure describes a nudge batch in which some targets could not be notified.
// It is reported as data on DispatchResult, never returned for the batch as a whole.
type PartialDispatchFailure struct {
	Attempted int
	Failures  []DispatchFailure
}

func (e *PartialDispatchFailure) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.OrgName)
	}
	return fmt.Sprintf("nudge dispatch failed for %d of %d targets: %s",
		len(e.Failures), e.Attempted, strings.Join(names, ", "))
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transitionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStateTransition, fmt.Sprintf(format, args...))
}
