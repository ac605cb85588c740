package practice

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidReference = errors.New("invalid reference")
	ErrNotFound         = errors.New("not found")
	ErrPersistence      = errors.New("failed to save data")
)

// ValidationError reports the first required field that is missing or blank.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InvalidReferenceError is returned when a foreign id does not resolve.
type InvalidReferenceError struct {
	Entity string // entity being written
	Field  string
	ID     ID
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s %s: %s does not exist", e.Entity, e.Field, e.ID)
}

func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }

type NotFoundError struct {
	Entity string
	ID     ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a backend failure while flushing the document.
// The in-memory change that triggered the flush is kept.
type PersistenceError struct {
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save snapshot to %s: %v", e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
