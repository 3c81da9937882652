// Package engine implements the gridcalc evaluation engine.
//
// A Sheet owns a set of cells. Each cell holds an optional formula, the
// cached value of its last evaluation and the set of cells whose formulas
// reference it (its dependents). Dependency edges are discovered while
// evaluating: reading a reference adds the reading cell to the referenced
// cell's dependents, creating an empty placeholder cell if needed.
//
// MUTATION:
//
// Every change to a cell goes through updateCell or removeCell. Both record
// the prior state of a cell the first time it is touched within a public
// operation, so a failing operation can be rolled back and Undo can revert
// the last operation.
//
// EVALUATION ORDER:
//
// Setting a formula evaluates the cell, then walks its transitive dependents
// depth first. Meeting a cell that is still on the walk stack is a cycle
// (CIRCULAR_REF). The walk yields a topological order in which every
// affected cell is recomputed exactly once, after all of its changed
// prerequisites.
//
// A Sheet is not safe for concurrent use; callers serialize access.
package engine
