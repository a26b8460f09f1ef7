// Package errors provides structured error types for flowcanvas.
//
// Every failure that crosses a package boundary (tree construction, geometry
// validation, flow decoding, HTTP handlers) carries a machine-readable [Code]
// so the CLI and the API can report it consistently.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - UNSUPPORTED_*: Structurally valid input the engine cannot lay out
//   - NOT_FOUND: Resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnsupportedStepType, "step %q has type %q", name, typ)
//	if errors.Is(err, errors.ErrCodeUnsupportedStepType) {
//	    // keep the previous layout on screen
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFlow, origErr, "decode %s", path)
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
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFlow     Code = "INVALID_FLOW"
	ErrCodeInvalidGeometry Code = "INVALID_GEOMETRY"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidStepName Code = "INVALID_STEP_NAME"
	ErrCodeDuplicateStep   Code = "DUPLICATE_STEP"

	// Structural errors in persisted flows
	ErrCodeUnsupportedStepType Code = "UNSUPPORTED_STEP_TYPE"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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

// UnsupportedStepTypeError describes a step whose discriminant the layout
// engine does not recognise. It is always returned wrapped in an *Error with
// ErrCodeUnsupportedStepType.
type UnsupportedStepTypeError struct {
	Step string // name of the offending step
	Type string // discriminant as persisted
}

// Error implements the error interface.
func (e *UnsupportedStepTypeError) Error() string {
	return fmt.Sprintf("step %q has unsupported type %q", e.Step, e.Type)
}

// Code returns the error code for this error type.
func (e *UnsupportedStepTypeError) Code() Code {
	return ErrCodeUnsupportedStepType
}

// UnsupportedStepType builds the coded error returned by tree construction.
func UnsupportedStepType(step, typ string) *Error {
	cause := &UnsupportedStepTypeError{Step: step, Type: typ}
	return &Error{
		Code:    ErrCodeUnsupportedStepType,
		Message: cause.Error(),
		Cause:   cause,
	}
}
