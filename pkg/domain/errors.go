package domain

import (
	"errors"
	"strings"
)

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrConflict is returned when a request contradicts stored state
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when a user is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user is not allowed to perform an action
	ErrForbidden = errors.New("forbidden")
)

// Error classifies a specific cause under one of the sentinel kinds above.
// The message is the cause's message only, so callers can surface it
// without leaking the classification wording.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// NotFound classifies err as ErrNotFound.
func NotFound(err error) error { return &Error{Kind: ErrNotFound, Err: err} }

// Conflict classifies err as ErrConflict.
func Conflict(err error) error { return &Error{Kind: ErrConflict, Err: err} }

// ValidationError aggregates every violated rule of a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Messages, "|") }

// Is reports ErrValidation so handlers can match on the kind.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError returns nil when there are no messages.
func NewValidationError(messages ...string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}
