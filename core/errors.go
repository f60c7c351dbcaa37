package core

import (
	"errors"
	"fmt"
)

// ErrOwnershipMismatch is returned when a suggestion save is attempted by a
// user other than the suggestion's owner.
var ErrOwnershipMismatch = errors.New("suggestion owner does not match user")

// ValidationError marks caller mistakes (malformed candidates, ownership
// mismatches). It is raised to the caller unmodified.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError constructs a ValidationError for a field.
func NewValidationError(field, reason string, err error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// StorageError marks I/O failures in the memory store. Load failures degrade
// to an empty store; save failures trigger backup restore. A StorageError
// must never terminate the host process.
type StorageError struct {
	Op   string // "load", "save", "backup", "restore"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError constructs a StorageError for an operation on a path.
func NewStorageError(op, path string, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Err: err}
}

// EvaluationError marks unexpected failures inside the per-utterance
// pipeline. The manager converts it into a "evaluation_error" rejection tag;
// it is never propagated to callers of EvaluateAndMaybeStore.
type EvaluationError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed at %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *EvaluationError) Unwrap() error { return e.Err }
