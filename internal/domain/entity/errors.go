package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrPersistence  = errors.New("persistence failure")
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUpstreamUnavailable is returned when an external lookup fails or times out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError reports a client-correctable problem with one input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MissingRequiredField is returned by Construct when a required field is absent.
func MissingRequiredField(name string) *ValidationError {
	return &ValidationError{Field: name, Reason: "is required"}
}

// PersistenceError wraps a backing-store failure raised inside a transaction.
// Duplicate key violations are persistence errors too, so both sentinels match.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// DuplicateKey builds the persistence error returned for unique violations.
func DuplicateKey(op string, cause error) *PersistenceError {
	if cause == nil {
		return &PersistenceError{Op: op, Err: ErrDuplicateKey}
	}
	return &PersistenceError{Op: op, Err: fmt.Errorf("%w: %w", ErrDuplicateKey, cause)}
}
