// Package shared contains the error kinds and event contracts used by every
// domain package. It has no external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// ErrMisconfigured marks a catalog or wiring problem, not bad input.
	ErrMisconfigured = errors.New("misconfigured")

	ErrLockNotAcquired = errors.New("lock not acquired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "tracker", "achievement"
	Op      string // Operation that failed, e.g., "GetCourses", "Grant"
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

// Tracker domain errors
var (
	ErrInvalidUserID     = NewDomainError("tracker", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidActionType = NewDomainError("tracker", "Validate", ErrInvalidInput, "invalid action type")
	ErrInvalidCourseType = NewDomainError("tracker", "Validate", ErrInvalidInput, "invalid course type")
	ErrSnapshotFetch     = NewDomainError("tracker", "LoadSnapshot", ErrExternalService, "failed to load user records")
)

// Achievement domain errors
var (
	ErrUnmappedAchievement = NewDomainError("achievement", "Evaluate", ErrMisconfigured, "achievement has no evaluation rule")
	ErrEarnedFetch         = NewDomainError("achievement", "LoadEarned", ErrExternalService, "failed to load earned achievements")
	ErrGrantWrite          = NewDomainError("achievement", "Grant", ErrExternalService, "failed to persist granted achievement")
	ErrGrantInProgress     = NewDomainError("achievement", "Grant", ErrLockNotAcquired, "another grant run holds the user lock")
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
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrFutureTimestamp) ||
		errors.Is(err, ErrInvalidFormat)
}
