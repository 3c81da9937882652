package spreadsheet

import (
	"context"
	"fmt"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/store"
)

// Storage persists the formulas of named sheets.
// Implemented by store.Store (SQLite) and boltstore.Store (bbolt).
type Storage interface {
	// Apply writes changes for sheet atomically. An empty formula removes
	// the cell.
	Apply(ctx context.Context, sheet string, op store.Op, changes []store.Change) error

	// ClearSheet removes every cell of sheet.
	ClearSheet(ctx context.Context, sheet string) error

	// ReadFormulas returns the formulas of sheet in replay order.
	ReadFormulas(ctx context.Context, sheet string) ([]engine.FormulaPair, error)

	// ListSheets returns the names of all non-empty sheets.
	ListSheets(ctx context.Context) ([]string, error)
}

// ErrCodeDB indicates a storage failure. The in-memory sheet is unchanged.
const ErrCodeDB engine.ErrorCode = "DB"

// IsDBError returns true if err is, or wraps, a DB error.
func IsDBError(err error) bool {
	return engine.CodeOf(err) == ErrCodeDB
}

func dbError(what string, err error) *engine.Error {
	return &engine.Error{
		Code:    ErrCodeDB,
		Message: fmt.Sprintf("%s: %v", what, err),
		Err:     err,
	}
}
