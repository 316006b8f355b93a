// Package errors provides structured error types for depsgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the builder, evaluator and CLI
//   - Machine-readable error codes carried by build diagnostics
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (scene data, scopes, fixtures)
//   - NOT_FOUND / UNRESOLVED_KEY: Lookups that produced nothing
//   - CYCLE / CALLBACK_FAILED: Recoverable graph and evaluation conditions
//   - STRUCTURAL / INTERNAL_*: Programming-contract violations
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidScene, "root %d is not a scene", h)
//	if errors.Is(err, errors.ErrCodeInvalidScene) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCallbackFailed, origErr, "operation %s", op)
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
	ErrCodeInvalidScene   Code = "INVALID_SCENE"
	ErrCodeInvalidScope   Code = "INVALID_SCOPE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"
	ErrCodeInvalidFixture Code = "INVALID_FIXTURE"
	ErrCodeInvalidName    Code = "INVALID_NAME"
	ErrCodeInvalidFrames  Code = "INVALID_FRAMES"

	// Lookup errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeUnresolvedKey Code = "UNRESOLVED_KEY"

	// Graph and evaluation conditions
	ErrCodeCycle          Code = "CYCLE"
	ErrCodeCallbackFailed Code = "CALLBACK_FAILED"

	// Internal errors
	ErrCodeStructural  Code = "STRUCTURAL"
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

// UserMessage returns the message of an *Error without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Structural panics with an ErrCodeStructural error. Builders call it when the
// graph violates an ownership or attachment contract; such a state is a bug in
// the builder, not a property of the scene data.
func Structural(format string, args ...any) {
	panic(New(ErrCodeStructural, format, args...))
}
