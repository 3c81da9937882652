// Package server exposes sheets over HTTP.
//
// The JSON API lives under /api/v1 and mirrors the sheet operations one to
// one. /ss/:sheet serves an HTML table with a form for editing cells, and
// /metrics serves Prometheus metrics for every sheet operation.
//
// All sheet access goes through spreadsheet.Registry, so requests for the
// same sheet are serialized while different sheets proceed in parallel.
package server
