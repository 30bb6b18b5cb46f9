package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequestError creates a 400 Bad Request error
func BadRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, message, err)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, message, err)
}

// ConfigurationError is a missing secret or key. It breaks every request that
// needs the value, so callers log it at error level and alert.
func ConfigurationError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, message, err)
}

// MalformedRequestError covers missing bodies, missing headers and unparsable payloads
func MalformedRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, message, err)
}

// AuthenticationError is a signature mismatch on an inbound notification
func AuthenticationError(message string, err error) *AppError {
	return NewAppError(http.StatusUnauthorized, message, err)
}

// PersistenceError is a store fault. The provider retries on its own schedule.
func PersistenceError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, message, err)
}

// GetAppError returns the AppError if the error is or wraps an AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// StatusCode returns the HTTP status for err, 500 when it carries none
func StatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
