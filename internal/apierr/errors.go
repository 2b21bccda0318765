// Package apierr defines the typed error taxonomy used across the core
// packages and mapped onto the HTTP envelope by the sidecar (§7).
package apierr

import (
	"errors"
	"fmt"
)

// ValidationError covers malformed input: bad parameters, unknown
// enumerants, invalid regular expressions, unknown ids referenced as input.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation builds a ValidationError with the default code.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: "VALIDATION_ERROR", Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError marks a write request missing or carrying a mismatched token.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// NewUnauthorized builds an UnauthorizedError.
func NewUnauthorized(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// NotFoundError marks an unknown route or unknown resource in a path parameter.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NewNotFound builds a NotFoundError.
func NewNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError marks an attempt to create a relation that already exists
// with incompatible attributes.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NewConflict builds a ConflictError.
func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// InternalError wraps any uncaught failure from storage, parsers, the
// filesystem, or the worker.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error { return e.Cause }

// NewInternal wraps cause as an InternalError.
func NewInternal(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// HTTPStatus returns the HTTP status family for err, defaulting to 500 for
// anything not in the typed taxonomy. It unwraps err with errors.As, so a
// typed error wrapped with fmt.Errorf("...: %w", err) still resolves.
func HTTPStatus(err error) int {
	var (
		validation   *ValidationError
		unauthorized *UnauthorizedError
		notFound     *NotFoundError
		conflict     *ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return 400
	case errors.As(err, &unauthorized):
		return 401
	case errors.As(err, &notFound):
		return 404
	case errors.As(err, &conflict):
		return 409
	default:
		return 500
	}
}

// ErrorCode returns the machine-readable code for err.
func ErrorCode(err error) string {
	var (
		validation   *ValidationError
		unauthorized *UnauthorizedError
		notFound     *NotFoundError
		conflict     *ConflictError
	)
	switch {
	case errors.As(err, &validation):
		if validation.Code != "" {
			return validation.Code
		}
		return "VALIDATION_ERROR"
	case errors.As(err, &unauthorized):
		return "UNAUTHORIZED"
	case errors.As(err, &notFound):
		return "NOT_FOUND"
	case errors.As(err, &conflict):
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

// ErrorType returns the taxonomy family name for err.
func ErrorType(err error) string {
	var (
		validation   *ValidationError
		unauthorized *UnauthorizedError
		notFound     *NotFoundError
		conflict     *ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &unauthorized):
		return "unauthorized"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &conflict):
		return "conflict"
	default:
		return "internal"
	}
}
