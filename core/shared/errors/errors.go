package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Domain errors
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeValidationError  ErrorCode = "VALIDATION_ERROR"

	// Execution errors
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeSerializationError ErrorCode = "SERIALIZATION_ERROR"

	// Infrastructure errors
	ErrCodeConfigError     ErrorCode = "CONFIG_ERROR"
	ErrCodeConnectionError ErrorCode = "CONNECTION_ERROR"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int // HTTP status code
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  getHTTPStatus(code),
	}
}

// WrapError wraps an existing error with an error code and message
func WrapError(code ErrorCode, message string, err error) *AppError {
	return NewAppError(code, message, err)
}

// getHTTPStatus maps error codes to HTTP status codes
func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodeValidationError:
		return http.StatusBadRequest
	case ErrCodeConnectionError:
		return http.StatusServiceUnavailable
	case ErrCodeConfigError, ErrCodeDatabaseError, ErrCodeSerializationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the error code of err, or ErrCodeInternalError for
// errors that did not originate from this package.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if the error is a template lookup failure
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeTemplateNotFound
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return CodeOf(err) == ErrCodeValidationError
}

// IsConnectionError checks if the error is a session/connection failure
func IsConnectionError(err error) bool {
	return CodeOf(err) == ErrCodeConnectionError
}

// IsConfigError checks if the error is a configuration document failure
func IsConfigError(err error) bool {
	return CodeOf(err) == ErrCodeConfigError
}
