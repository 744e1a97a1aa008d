// File: pkg/storage/errors.go
package storage

import (
	"errors"
	"fmt"
)

var (
	// Contract violations: missing key, missing source, missing configuration
	ErrInvalidArgument = errors.New("invalid argument")

	// A policy branch the operation does not support
	ErrNotImplemented = errors.New("not implemented")

	// Raised by the Throw policy when the target already exists
	ErrItemExists = errors.New("item already exists")

	// The item is absent, or the backend refused to reveal it
	ErrNotFound = errors.New("item not found")
)

// Outcome is the backend-neutral classification of a backend response
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeForbidden
	OutcomeUnauthorized
	OutcomeOtherError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// BackendError carries the classified outcome of a failed backend call.
// Adapters produce it so shared logic never inspects native status codes.
type BackendError struct {
	Op      string
	Key     string
	Outcome Outcome
	Err     error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Outcome, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Outcome, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Wraps err with its classified outcome. A nil err stays nil.
func NewBackendError(op, key string, outcome Outcome, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Key: key, Outcome: outcome, Err: err}
}

// Returns the outcome recorded in err; unclassified errors count as OutcomeOtherError
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Outcome
	}
	if errors.Is(err, ErrNotFound) {
		return OutcomeNotFound
	}
	return OutcomeOtherError
}

// Reports whether err means the item is not visible to the caller:
// not found, forbidden or unauthorized
func IsAbsent(err error) bool {
	switch OutcomeOf(err) {
	case OutcomeNotFound, OutcomeForbidden, OutcomeUnauthorized:
		return true
	default:
		return false
	}
}

func invalidArgument(name, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, name, reason)
}
