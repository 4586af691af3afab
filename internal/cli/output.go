package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mkandawire/docket/internal/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // operation rejected (validation, authorization, bad transition)
	ExitCommandError = 2 // command error (bad flags, unreadable files, missing database)
)

// ExitError is an error carrying a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError attaches an exit code to an existing error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, defaulting to
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text or JSON.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// Response is the standard JSON envelope for command output.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError carries error details in JSON output.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success renders a successful result. In text mode, data's String or
// default formatting is used.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Successf renders a formatted text line, or the given data in JSON mode.
func (f *OutputFormatter) Successf(data any, format string, args ...any) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	fmt.Fprintf(f.Writer, format+"\n", args...)
	return nil
}

// Error renders an error in the configured format.
func (f *OutputFormatter) Error(err error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: errorCode(err), Message: err.Error()},
		})
	}
	fmt.Fprintf(f.Writer, "error: %v\n", err)
	return nil
}

// errorCode maps the domain error taxonomy onto stable string codes for
// scripting against JSON output.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrSequenceContention):
		return "sequence_contention"
	case errors.Is(err, domain.ErrCorruptRecord):
		return "corrupt_record"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
