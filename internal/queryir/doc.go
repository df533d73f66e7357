// Package queryir defines the federated query request: the declarative input
// that the SQL compiler in internal/querysql turns into a UNION ALL statement.
//
// A request is an ordered list of table selections. A table's position in
// that list is its identity: joins and filters refer to tables by TableIndex,
// and the compiler derives each table's alias (t1, t2, ...) from it. Two
// selections of the same logical table from different catalogs are therefore
// never ambiguous.
//
// VALIDATION:
//
// Validate checks every cross-reference and every value that will be encoded
// into SQL before compilation starts. It does not fail fast: all problems are
// collected, each with the JSON path of the offending field and a stable code
// (E2xx), so a caller can correct the whole request in one round trip.
//
// Validation also compares the arity of UNION ALL arms. When every table has
// an explicit projection, differing column counts are an error. When any
// table projects all columns the arity is unknown without live metadata and a
// warning is returned instead.
//
// Validate is a pure function and safe for concurrent use.
package queryir
