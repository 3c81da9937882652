// Package harness runs spreadsheet conformance scenarios.
//
// A scenario is a YAML file that seeds a sheet, runs a list of sheet
// operations with optional expectations, and asserts on the final cells:
//
//	name: propagation
//	description: "Changing a cell recomputes its dependents"
//	setup:
//	  - id: A1
//	    formula: "5"
//	steps:
//	  - op: eval
//	    cell: B1
//	    formula: "=A1*2"
//	    expect:
//	      updates: { B1: 10 }
//	  - op: eval
//	    cell: A1
//	    formula: "=A1+"
//	    expect:
//	      error: SYNTAX
//	assertions:
//	  - type: cell_value
//	    cell: B1
//	    value: 10
//
// # Operations
//
// eval, delete, copy, undo, clear and query map onto the spreadsheet.Sheet
// methods of the same name. An expect clause may check the error code, the
// exact set of updated values, the queried value and formula, or the ids
// restored by undo.
//
// # Assertion Types
//
//   - cell_value: the cell holds the given value
//   - cell_formula: the cell holds the given canonical formula
//   - cell_empty: the cell has no formula
//   - cell_count: the sheet has exactly count non-empty cells
//   - dump_before: cell is listed before other in the dependency-ordered dump
//
// # Determinism
//
// Every scenario runs against a fresh in-memory SQLite store with
// sequential operation ids. After the steps the sheet is rebuilt from the
// store and compared with the live sheet, so each scenario also checks that
// what was persisted replays to the same cells. The trace of a run is
// byte-identical across runs and can be compared against a golden file.
package harness
