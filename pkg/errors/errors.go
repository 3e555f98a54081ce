package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeUnsupportedEvent indicates an event name outside the funnel vocabulary
	ErrorTypeUnsupportedEvent ErrorType = "UNSUPPORTED_EVENT_TYPE"

	// ErrorTypeMissingIdentifier indicates an event with no patient identifier
	ErrorTypeMissingIdentifier ErrorType = "MISSING_IDENTIFIER"

	// ErrorTypeInvalidPeriod indicates an unusable reporting window
	ErrorTypeInvalidPeriod ErrorType = "INVALID_PERIOD"

	// ErrorTypeValidation indicates a malformed request
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypePersistence indicates the storage collaborator failed
	ErrorTypePersistence ErrorType = "PERSISTENCE"

	// ErrorTypeTimeout indicates a storage call outlived its deadline
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the caller sent something the engine rejects
func (e *AppError) IsClientError() bool {
	switch e.Type {
	case ErrorTypeUnsupportedEvent, ErrorTypeMissingIdentifier, ErrorTypeInvalidPeriod,
		ErrorTypeValidation, ErrorTypeUnauthorized:
		return true
	}
	return false
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeInternal if err is
// not an AppError
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err is an AppError of type t
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// NewUnsupportedEventError creates an error for an unknown event name
func NewUnsupportedEventError(eventType string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnsupportedEvent,
		Message: fmt.Sprintf("unsupported event type %q", eventType),
	}
}

// NewMissingIdentifierError creates an error for an event without identifiers
func NewMissingIdentifierError() *AppError {
	return &AppError{
		Type:    ErrorTypeMissingIdentifier,
		Message: "at least one of identifier, email or phone is required",
	}
}

// NewInvalidPeriodError creates an error for an unusable reporting window
func NewInvalidPeriodError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidPeriod,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewPersistenceError wraps a storage failure. A deadline or cancellation is
// reported as a timeout instead.
func NewPersistenceError(message string, err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTimeoutError(message, err)
	}
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		Err:     err,
	}
}

// NewTimeoutError creates a new storage timeout error
func NewTimeoutError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}
