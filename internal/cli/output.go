package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (bad formula, cycle, non-deterministic replay, etc.)
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// Error codes for failures outside the sheet engine.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInternal     = "INTERNAL"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "SYNTAX", "CIRCULAR_REF", "DB", ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. text is
// the human-readable rendering of data.
func (f *OutputFormatter) Success(data any, text func(io.Writer)) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// encode writes v as indented JSON with sorted map keys.
func (f *OutputFormatter) encode(v any) error {
	encoder := sonic.ConfigStd.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err and returns the ExitError for it. Sheet errors (SYNTAX,
// CIRCULAR_REF, DB) exit with ExitFailure; an ExitError passes through with
// its own code.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(ErrCodeInvalidInput, exitErr.Error(), nil)
		return exitErr
	}

	code := string(engine.CodeOf(err))
	switch {
	case code != "":
	case errors.Is(err, spreadsheet.ErrInvalidName):
		code = ErrCodeInvalidInput
	default:
		code = ErrCodeInternal
	}
	_ = f.Error(code, errorText(err), nil)
	return WrapExitError(ExitFailure, "operation failed", err)
}

// errorText is err's message without the code prefix that *engine.Error adds.
func errorText(err error) string {
	var e *engine.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.CellID != "" {
		return fmt.Sprintf("%s (cell=%s)", e.Message, e.CellID)
	}
	return e.Message
}

// writeUpdates prints one "ID = value" line per updated cell, sorted by id.
func writeUpdates(w io.Writer, u engine.Updates) {
	for _, id := range slices.Sorted(maps.Keys(u)) {
		fmt.Fprintf(w, "%s = %s\n", id, spreadsheet.Value(u[id]))
	}
}

// writeCells prints cells as aligned id, formula and value columns.
func writeCells(w io.Writer, cells []spreadsheet.Cell) {
	for _, c := range cells {
		fmt.Fprintf(w, "%-6s %-24s %s\n", c.ID, c.Formula, c.Value)
	}
}
