// Package apperrors defines the application error taxonomy. Every failure a
// service operation can produce is one of these types; handlers translate
// them into the response envelope without inspecting message text.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation_failed"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeAuth       ErrorType = "auth_failure"
	ErrorTypeStorage    ErrorType = "storage_failure"
	ErrorTypeBadRequest ErrorType = "bad_request"
	ErrorTypeUpstream   ErrorType = "upstream_failure"
)

// AppError represents an application error with an HTTP-equivalent code
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewNotFound creates a not-found error (404)
func NewNotFound(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusNotFound,
	}
}

// NewValidation creates a referential-validation error (424). The original
// system reported failed referential checks as failed dependencies rather
// than bad requests, and callers depend on that code.
func NewValidation(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusFailedDependency,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusConflict,
	}
}

// NewAuth creates an authentication error (401)
func NewAuth(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuth,
		Message: message,
		Code:    http.StatusUnauthorized,
	}
}

// NewStorage creates a storage-unavailable error (503), distinct from
// not-found and validation failures
func NewStorage(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusServiceUnavailable,
	}
}

// NewBadRequest creates a malformed-request error (400)
func NewBadRequest(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusBadRequest,
	}
}

// NewUpstream creates an upstream-dependency error (424), used by the chat
// pass-through when the language model call fails
func NewUpstream(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrorTypeUpstream,
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusFailedDependency,
	}
}

// Get extracts an AppError from err, or nil if it isn't one
func Get(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsNotFound checks if the error is a not-found error
func IsNotFound(err error) bool {
	appErr := Get(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	appErr := Get(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	appErr := Get(err)
	return appErr != nil && appErr.Type == ErrorTypeConflict
}
