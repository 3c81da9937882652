package engine

import (
	"errors"
	"fmt"
)

// Error is the user-facing error returned by sheet operations. After any
// Error the sheet is in the state it had before the failing call.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// CellID names the cell involved, if any.
	CellID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeSyntax indicates malformed formula text or cell id.
	ErrCodeSyntax ErrorCode = "SYNTAX"

	// ErrCodeCircularRef indicates a dependency cycle found during evaluation.
	ErrCodeCircularRef ErrorCode = "CIRCULAR_REF"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CellID != "" {
		return fmt.Sprintf("%s: %s (cell=%s)", e.Code, e.Message, e.CellID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsSyntaxError returns true if err is, or wraps, a SYNTAX error.
func IsSyntaxError(err error) bool {
	return CodeOf(err) == ErrCodeSyntax
}

// IsCircularRefError returns true if err is, or wraps, a CIRCULAR_REF error.
func IsCircularRefError(err error) bool {
	return CodeOf(err) == ErrCodeCircularRef
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewSyntaxError wraps a parse failure for cellID.
func NewSyntaxError(cellID string, err error) *Error {
	return &Error{
		Code:    ErrCodeSyntax,
		Message: err.Error(),
		CellID:  cellID,
		Err:     err,
	}
}

// NewCircularRefError reports a cycle through cellID.
func NewCircularRefError(cellID string) *Error {
	return &Error{
		Code:    ErrCodeCircularRef,
		Message: fmt.Sprintf("circular ref involving %s", cellID),
		CellID:  cellID,
	}
}
