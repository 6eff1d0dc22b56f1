// Package shared contains common domain types, errors, events, and identifiers
// that are used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	ErrValidation = errors.New("validation error")
	ErrInvalidID  = errors.New("invalid ID")

	ErrUnauthorized = errors.New("unauthorized")

	// A competing writer changed the same rows; the operation may be retried.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "task", "badge"
	Op      string // Operation that failed, e.g., "Complete", "Register"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validation builds a validation error carrying a caller-facing message.
func Validation(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// User domain errors
var (
	ErrUserNotFound       = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUsernameTaken      = NewDomainError("user", "Register", ErrAlreadyExists, "username already taken")
	ErrInvalidCredentials = NewDomainError("user", "Login", ErrUnauthorized, "invalid username or password")
	ErrSessionNotFound    = NewDomainError("user", "ResolveSession", ErrUnauthorized, "session not found or expired")
)

// Task domain errors
var (
	ErrTaskNotFound   = NewDomainError("task", "Find", ErrNotFound, "task not found")
	ErrTaskNotOwned   = NewDomainError("task", "Complete", ErrUnauthorized, "task belongs to another user")
	ErrInvalidDueDate = NewDomainError("task", "Validate", ErrValidation, "due date must be YYYY-MM-DD")
	ErrInvalidPoints  = NewDomainError("task", "Validate", ErrValidation, "points must be positive")
)

// Badge domain errors
var (
	ErrBadgeNotFound = NewDomainError("badge", "Find", ErrNotFound, "badge not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidID)
}

// IsUnauthorized checks if the error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConflict checks if the error reports a lost concurrent-modification race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
