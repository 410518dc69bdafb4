// Package apperror defines the error taxonomy of the API and translates
// driver, validation and token errors into it.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// AppError is an error with an HTTP status. Operational errors are expected
// failures whose message is safe to show to clients.
type AppError struct {
	StatusCode  int
	Message     string
	Operational bool
	cause       error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Status is "fail" for client errors and "error" otherwise.
func (e *AppError) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

// Cause is the wrapped error carrying the stack trace.
func (e *AppError) Cause() error {
	return e.cause
}

// StackTrace formats the stack recorded when the error was created.
func (e *AppError) StackTrace() string {
	if e.cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.cause)
}

// New returns an operational error with the given status and message.
func New(statusCode int, message string) *AppError {
	return &AppError{
		StatusCode:  statusCode,
		Message:     message,
		Operational: true,
		cause:       errors.New(message),
	}
}

// Wrap classifies err under statusCode with a client-facing message.
func Wrap(err error, statusCode int, message string) *AppError {
	return &AppError{
		StatusCode:  statusCode,
		Message:     message,
		Operational: true,
		cause:       errors.WithStack(err),
	}
}

func BadRequest(message string) *AppError   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *AppError { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *AppError    { return New(http.StatusForbidden, message) }
func NotFound(message string) *AppError     { return New(http.StatusNotFound, message) }

// Internal wraps an unexpected failure. Its message is never shown in
// production.
func Internal(err error) *AppError {
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Message:    err.Error(),
		cause:      errors.WithStack(err),
	}
}
