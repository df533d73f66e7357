// Package trino is a minimal client for the Trino REST statement protocol.
//
// A statement is POSTed to /v1/statement and the client follows nextUri until
// the coordinator stops returning one, collecting columns and rows on the
// way. Errors reported by the engine are returned unmodified as *QueryError.
package trino
