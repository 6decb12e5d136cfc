package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for the workflow core. Handlers map these to HTTP codes;
// they are expected outcomes, not internal failures.
var (
	// ErrUnauthorized means the actor lacks the capability or role
	// relationship for the attempted action.
	ErrUnauthorized = errors.New("not authorized for this action")

	// ErrInvalidRequestState means the action was attempted from a wrong
	// source status. Two approvers racing on the same request produce
	// exactly one of these.
	ErrInvalidRequestState = errors.New("request is not in a valid state for this action")

	// ErrQuoteLocked means the quote belongs to a request that has
	// progressed past the quoting phase.
	ErrQuoteLocked = errors.New("quote can no longer be modified")
)

// ValidationError reports a malformed payload with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a storage failure during effect application. The
// whole transition was rolled back; the caller may retry.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
