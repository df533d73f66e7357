// Package store provides SQLite-backed storage for the query history.
//
// Every generated statement is recorded with the canonical hash of the
// request that produced it, so repeated requests can be found by hash.
// Executions of a recorded statement against Trino are linked to it.
//
// # Tables
//
//   - queries: one row per generated statement
//   - executions: one row per run of a recorded statement (FK to queries)
//
// # Ordering
//
// Reads return newest first: ORDER BY created_at DESC, id COLLATE BINARY DESC.
// IDs are UUIDv7, so the id tiebreaker follows creation order as well.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
