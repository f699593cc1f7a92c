// Package store provides a SQLite-backed ledger of analysis runs.
//
// Each run row records what is needed to reproduce and check it later: the
// dataset path and digest, the configuration and its digest, the result
// digest, the rendered report as JSON, and the build environment (Go
// version and module versions).
//
// # Ordering
//
// Runs are ordered by the logical seq column assigned on insert, never by
// the recorded wall-clock time, so listings are stable however clocks
// behave. Queries break seq ties by id with BINARY collation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
