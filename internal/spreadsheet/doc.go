// Package spreadsheet binds the in-memory engine to durable storage.
//
// A Sheet replays its stored formulas into a fresh engine when loaded and
// mirrors every successful mutation back to storage. If storage rejects a
// write the in-memory mutation is undone, so memory never runs ahead of
// disk, and the caller gets a DB error.
//
// A Registry hands out sheets by name. Sheets are loaded once and each one
// is guarded by its own mutex, because engine sheets are not safe for
// concurrent use.
package spreadsheet
