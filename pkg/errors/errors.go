package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a stable error code for programmatic handling.
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeInvalid      Code = "invalid"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"
)

// Violation is a single business-rule failure tied to a request field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is a structured error type that carries a code, message,
// optional metadata, and the collected rule violations for validation
// failures.
type AppError struct {
	Code       Code
	Message    string
	Err        error
	Meta       map[string]any
	Violations []Violation
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.Message)
		}
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(parts, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// WithMeta attaches metadata to the error.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidation builds a CodeInvalid error carrying every detected
// violation. Callers collect all failures for a request before calling
// this so the client sees the full picture in one response.
func NewValidation(violations []Violation) *AppError {
	return &AppError{Code: CodeInvalid, Message: "validation failed", Violations: violations}
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// ViolationsOf returns the violations carried by err, or nil if err is not
// a validation AppError.
func ViolationsOf(err error) []Violation {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Violations
	}
	return nil
}
