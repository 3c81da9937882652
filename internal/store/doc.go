// Package store provides SQLite-backed durable storage for gridcalc sheets.
//
// Two tables:
//   - cells: the current formula of every non-empty cell
//   - operations: an append-only log of every mutation
//
// # Ordering
//
// Every write is stamped with a seq from a logical Clock, never a wall-clock
// timestamp. ReadFormulas returns rows ORDER BY seq ASC, cell_id ASC, so a
// sheet replays its formulas in the order they were written.
//
// # Atomicity
//
// Apply writes all changes of one sheet operation and their log rows in a
// single transaction.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
