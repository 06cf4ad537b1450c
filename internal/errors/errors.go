package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig   = "CONFIG"
	ErrAuth     = "AUTH"
	ErrConnect  = "CONNECT"
	ErrCommand  = "COMMAND"
	ErrResponse = "RESPONSE"
	ErrEncrypt  = "ENCRYPT"
	ErrDecrypt  = "DECRYPT"
	ErrFS       = "FS"
	ErrExec     = "EXEC"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConnect code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConnect,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Summary returns a single-line description suitable for status fields.
// Nested structured causes are flattened into "message: cause".
func (e *Error) Summary() string {
	if e.Cause == nil {
		return e.Message
	}
	var inner *Error
	if errors.As(e.Cause, &inner) {
		return e.Message + ": " + inner.Summary()
	}
	return e.Message + ": " + strings.TrimSpace(e.Cause.Error())
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var hwErr *Error
	if errors.As(err, &hwErr) {
		return hwErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured error, or "" if err
// carries none.
func CodeOf(err error) string {
	var hwErr *Error
	if errors.As(err, &hwErr) {
		return hwErr.Code
	}
	return ""
}

// CodeOrDefault returns the code of err, or def when err carries none.
func CodeOrDefault(err error, def string) string {
	if code := CodeOf(err); code != "" {
		return code
	}
	return def
}

// Summarize renders any error as a single line.
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	var hwErr *Error
	if errors.As(err, &hwErr) {
		return hwErr.Summary()
	}
	return strings.TrimSpace(err.Error())
}

// ExitError carries a process exit code out of a command without printing
// an additional message.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError with the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the exit code from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
