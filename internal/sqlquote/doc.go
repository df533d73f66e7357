// Package sqlquote encodes identifiers and literals for the Trino SQL dialect.
//
// Every piece of user-supplied text that ends up inside a generated statement
// passes through this package. Nothing else in the module builds quoted SQL
// text by hand.
//
// Identifiers follow ANSI rules: a delimited identifier is wrapped in double
// quotes and embedded double quotes are doubled. String literals are wrapped
// in single quotes and embedded single quotes are doubled. Identifiers are NFC
// normalized first so that visually identical names encode identically;
// literal values are passed through unchanged.
package sqlquote
