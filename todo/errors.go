package todo

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("todo not found")
	ErrDuplicateTitle      = errors.New("a todo with that title already exists")
	ErrAlreadyInState      = errors.New("todo is already in the requested state")
	ErrConstraintViolation = errors.New("storage constraint violated")
	ErrInvalidTitle        = errors.New("title must not be empty")
)

// Failure is the closed set of outcome kinds a domain operation can end in.
type Failure int

const (
	FailureNone Failure = iota
	FailureNotFound
	FailureDuplicateTitle
	FailureAlreadyInState
	FailureConstraintViolation
	FailureInvalidInput
	FailureUnexpected
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNotFound:
		return "not_found"
	case FailureDuplicateTitle:
		return "duplicate_title"
	case FailureAlreadyInState:
		return "already_in_state"
	case FailureConstraintViolation:
		return "constraint_violation"
	case FailureInvalidInput:
		return "invalid_input"
	case FailureUnexpected:
		return "unexpected"
	}
	return fmt.Sprintf("failure(%d)", int(f))
}

// KindOf classifies err. A nil error is FailureNone and anything outside the
// domain taxonomy is FailureUnexpected.
func KindOf(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrDuplicateTitle):
		return FailureDuplicateTitle
	case errors.Is(err, ErrAlreadyInState):
		return FailureAlreadyInState
	case errors.Is(err, ErrConstraintViolation):
		return FailureConstraintViolation
	case errors.Is(err, ErrInvalidTitle):
		return FailureInvalidInput
	default:
		return FailureUnexpected
	}
}
