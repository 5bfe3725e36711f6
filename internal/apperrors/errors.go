package apperrors

import (
	"fmt"
	"net/http"
)

// AppError is the application error type surfaced over the API.
// Code is machine-readable; StatusCode follows HTTP status semantics.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
	Details    map[string]interface{}
}

func (e AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the machine code so sentinel-style checks work
func (e AppError) Is(target error) bool {
	if target, ok := target.(AppError); ok {
		return target.Code == e.Code
	}
	return false
}

func (e AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e AppError) WithDetail(key string, value interface{}) AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func NewNotFound(message string) AppError {
	return AppError{
		Code:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewValidation(message string) AppError {
	return AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInsufficientFunds(message string) AppError {
	return AppError{
		Code:       "INSUFFICIENT_FUNDS",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewForbidden(message string) AppError {
	return AppError{
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflict(message string) AppError {
	return AppError{
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternal wraps an unexpected failure. The message is what the
// caller sees; the wrapped error stays in the logs.
func NewInternal(message string, err error) AppError {
	return AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
