// Package errors provides structured error types for trackyard.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the network core, scripts and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes follow the error taxonomy of the network engine:
//   - GRAPH_CONSISTENCY: the caller operated on an element that does not belong
//     to the graph it addressed. These abort the current edit.
//   - INVALID_ARGUMENT / PRECONDITION: a call was made with arguments that can
//     never succeed (a persisted element passed to AddVertex, a negative world size).
//   - NO_SOLUTION: degenerate geometry (parallel lines, a missing intersection)
//     surfaced to a caller that has to branch on it.
//   - INVALID_INPUT / NOT_FOUND: script and configuration problems.
//
// Rejected vertex moves are not errors; they are reported as a boolean result.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeGraphConsistency, "vertex %d is not part of this edit", id)
//	if errors.Is(err, errors.ErrCodeGraphConsistency) {
//	    // abort the gesture
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "decode script %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Caller bugs against the network core
	ErrCodeGraphConsistency Code = "GRAPH_CONSISTENCY"
	ErrCodeInvalidArgument  Code = "INVALID_ARGUMENT"
	ErrCodePrecondition     Code = "PRECONDITION"

	// Geometry
	ErrCodeNoSolution Code = "NO_SOLUTION"

	// Input errors (scripts, config, HTTP)
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeNotFound     Code = "NOT_FOUND"

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

// Consistency creates a GRAPH_CONSISTENCY error. Used by the network core when
// a caller addresses a vertex or track that the target graph does not own.
func Consistency(format string, args ...any) *Error {
	return New(ErrCodeGraphConsistency, format, args...)
}

// Precondition creates a PRECONDITION error.
func Precondition(format string, args ...any) *Error {
	return New(ErrCodePrecondition, format, args...)
}
