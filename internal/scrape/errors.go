// Package scrape defines the shared data model and error taxonomy for the
// lyrics pipeline.
package scrape

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies a pipeline failure. Retry and HTTP-status decisions
// switch on the code, never on the message text.
type ErrorCode string

// Pipeline error codes.
const (
	CodeNavigation   ErrorCode = "NAVIGATION_ERROR"
	CodeSearch       ErrorCode = "SEARCH_ERROR"
	CodeNoResults    ErrorCode = "NO_RESULTS"
	CodeExtraction   ErrorCode = "EXTRACTION_ERROR"
	CodeTimeout      ErrorCode = "TIMEOUT_ERROR"
	CodeProxy        ErrorCode = "PROXY_ERROR"
	CodeBrowser      ErrorCode = "BROWSER_ERROR"
	CodeAccessDenied ErrorCode = "ACCESS_DENIED"
	CodeUnknown      ErrorCode = "UNKNOWN_ERROR"
)

// Error is a typed pipeline failure carrying enough context to diagnose the
// stage that raised it.
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

// NewError builds an Error with the current timestamp.
func NewError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// Errorf builds an Error from a format string.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...), nil)
}

// WithDetail attaches one key/value pair and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the ErrorCode from err, walking the wrap chain. Errors that
// are not pipeline errors report CodeUnknown.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
