// Package errors provides structured error types for the non-core layers of
// rankbars (ingestion, store, cache, server, CLI).
//
// The rendering engine and the diff engine never return errors: invalid
// records are filtered and empty inputs render or diff to nothing. Errors
// only arise where rankbars talks to files, databases, or HTTP clients.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND: Resource not found
//   - UNAUTHORIZED: Password gate rejected the request
//   - UNAVAILABLE: A backing service is not configured or unreachable
//   - INTERNAL_ERROR: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidYear, "invalid year: %s", raw)
//	if errors.Is(err, errors.ErrCodeInvalidYear) {
//	    // respond with 400
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeUnavailable, origErr, "connect mongo")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidYear   Code = "INVALID_YEAR"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidField  Code = "INVALID_FIELD"
	ErrCodeInvalidKey    Code = "INVALID_KEY"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Access errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// Backing service errors
	ErrCodeUnavailable Code = "UNAVAILABLE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
