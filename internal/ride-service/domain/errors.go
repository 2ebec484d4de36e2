package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every concrete error below matches exactly one of these
// through errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrResourceBusy           = errors.New("resource busy")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrValidation             = errors.New("validation failed")
)

// Named failures.
var (
	ErrDriverNotAssigned = &ValidationError{Field: "driver_id", Reason: "driver not assigned to this ride"}
	ErrInsufficientFunds = &ValidationError{Field: "balance", Reason: "insufficient balance"}
	ErrNoDriverAvailable = errors.New("no drivers available")
)

type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidStateTransitionError carries the state the operation needed and the
// state it found.
type InvalidStateTransitionError struct {
	Entity   string
	ID       string
	Expected string
	Actual   RideStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %s is %s, expected %s", e.Entity, e.ID, e.Actual, e.Expected)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

type ResourceBusyError struct {
	Resource string
	Waited   time.Duration
}

func (e *ResourceBusyError) Error() string {
	if e.Waited > 0 {
		return fmt.Sprintf("%s is locked by another operation (waited %s)", e.Resource, e.Waited)
	}
	return fmt.Sprintf("%s is locked by another operation", e.Resource)
}

func (e *ResourceBusyError) Is(target error) bool { return target == ErrResourceBusy }

// ConcurrentModificationError means another writer changed the row first.
// ExpectedVersion is the version the failed write was based on; zero when the
// conflict was not detected by a version check.
type ConcurrentModificationError struct {
	Entity          string
	ID              string
	ExpectedVersion int64
	Cause           error
}

func (e *ConcurrentModificationError) Error() string {
	msg := fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
	if e.ExpectedVersion > 0 {
		msg += fmt.Sprintf(" (expected version %d)", e.ExpectedVersion)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

func (e *ConcurrentModificationError) Unwrap() error { return e.Cause }

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsRetryable reports whether re-fetching and retrying may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrResourceBusy) || errors.Is(err, ErrConcurrentModification)
}
