package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"

	// Infrastructure errors
	ErrorTypeBackendUnavailable ErrorType = "BACKEND_UNAVAILABLE"
	ErrorTypeMetricsUnavailable ErrorType = "METRICS_UNAVAILABLE"
	ErrorTypePersistenceFailure ErrorType = "PERSISTENCE_FAILURE"

	// Application errors
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewBackendUnavailableError reports a cache or store transport failure.
// This is never folded into a cache miss; callers decide fallback behavior.
func NewBackendUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeBackendUnavailable,
		Message:    message,
		Cause:      cause,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewMetricsUnavailableError reports that the cache backend does not expose
// hit/miss counters or cannot be reached. Distinguishable from a snapshot
// with legitimately zero traffic.
func NewMetricsUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeMetricsUnavailable,
		Message:    message,
		Cause:      cause,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewPersistenceError reports a failed backing-store mutation. No mutation
// event fires for the failed operation.
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePersistenceFailure,
		Message:    message,
		Cause:      cause,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		Cause:      cause,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Type checking functions

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsBackendUnavailable checks if an error is a backend transport failure
func IsBackendUnavailable(err error) bool {
	return isType(err, ErrorTypeBackendUnavailable)
}

// IsMetricsUnavailable checks if an error is a metrics availability failure
func IsMetricsUnavailable(err error) bool {
	return isType(err, ErrorTypeMetricsUnavailable)
}

// IsPersistenceFailure checks if an error is a failed store mutation
func IsPersistenceFailure(err error) bool {
	return isType(err, ErrorTypePersistenceFailure)
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// HTTPStatusFor maps an error to an HTTP status code
func HTTPStatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Wrap wraps an error with additional context, preserving its type
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:       appErr.Type,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			Cause:      appErr.Cause,
			HTTPStatus: appErr.HTTPStatus,
		}
	}

	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}
