// Package errors provides custom error types for agentmux-core.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes as constants
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeSessionUnavailable = "SESSION_UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeMoveFailed         = "MOVE_FAILED"
	ErrCodeDeliveryFailed     = "DELIVERY_FAILED"
	ErrCodeStorageError       = "STORAGE_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with additional context.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s %q not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:       ErrCodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// InvalidInput creates a validation error for a bad or missing field.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// SessionUnavailable creates an error for a session the driver reports dead.
func SessionUnavailable(sessionName string) *AppError {
	return &AppError{
		Code:       ErrCodeSessionUnavailable,
		Message:    fmt.Sprintf("session %q is unavailable", sessionName),
		HTTPStatus: http.StatusConflict,
	}
}

// Timeout creates an error for an exhausted escalation deadline.
func Timeout(message string) *AppError {
	return &AppError{
		Code:       ErrCodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// MoveFailed creates an error for a task-folder transition failure.
func MoveFailed(message string) *AppError {
	return &AppError{
		Code:       ErrCodeMoveFailed,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// DeliveryFailed creates an error for a scheduler delivery failure.
func DeliveryFailed(message string) *AppError {
	return &AppError{
		Code:       ErrCodeDeliveryFailed,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
	}
}

// StorageError creates an error for a failed snapshot write.
func StorageError(message string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeStorageError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Internal creates a generic internal error with a wrapped cause.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Wrap wraps an existing error with additional context, preserving an
// AppError's code and status if present.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:       appErr.Code,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			HTTPStatus: appErr.HTTPStatus,
			Err:        err,
		}
	}

	return &AppError{
		Code:       ErrCodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NotFound AppError.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

// GetHTTPStatus returns the HTTP status for err, defaulting to 500.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
