// Package sheetio reads and writes sheet contents as files.
//
// Two formats are supported:
//
//   - YAML: a list of {id, formula} pairs in replay order, used for fixtures
//     and for moving sheets between stores.
//   - XLSX: an Excel workbook. Numbers are written as numeric cells and
//     formulas as cell formulas, so the exported file recalculates in any
//     spreadsheet application.
//
// Both readers return pairs in an order that replays cleanly into an empty
// sheet.
package sheetio
