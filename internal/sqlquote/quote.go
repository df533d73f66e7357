package sqlquote

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/text/unicode/norm"
)

// bareIdentifier matches identifiers that Trino accepts without quoting.
var bareIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// shardToken matches values allowed in unquoted template positions.
var shardToken = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// reserved lists Trino's reserved keywords. A bare identifier that collides
// with one of these must be delimited.
var reserved = map[string]bool{
	"ALTER": true, "AND": true, "AS": true, "BETWEEN": true, "BY": true,
	"CASE": true, "CAST": true, "CONSTRAINT": true, "CREATE": true, "CROSS": true,
	"CUBE": true, "CURRENT_CATALOG": true, "CURRENT_DATE": true, "CURRENT_PATH": true,
	"CURRENT_ROLE": true, "CURRENT_SCHEMA": true, "CURRENT_TIME": true,
	"CURRENT_TIMESTAMP": true, "CURRENT_USER": true, "DEALLOCATE": true,
	"DELETE": true, "DESCRIBE": true, "DISTINCT": true, "DROP": true, "ELSE": true,
	"END": true, "ESCAPE": true, "EXCEPT": true, "EXECUTE": true, "EXISTS": true,
	"EXTRACT": true, "FALSE": true, "FOR": true, "FROM": true, "FULL": true,
	"GROUP": true, "GROUPING": true, "HAVING": true, "IN": true, "INNER": true,
	"INSERT": true, "INTERSECT": true, "INTO": true, "IS": true, "JOIN": true,
	"JSON_ARRAY": true, "JSON_EXISTS": true, "JSON_OBJECT": true, "JSON_QUERY": true,
	"JSON_TABLE": true, "JSON_VALUE": true, "LEFT": true, "LIKE": true,
	"LISTAGG": true, "LOCALTIME": true, "LOCALTIMESTAMP": true, "NATURAL": true,
	"NORMALIZE": true, "NOT": true, "NULL": true, "ON": true, "OR": true,
	"ORDER": true, "OUTER": true, "PREPARE": true, "RECURSIVE": true, "RIGHT": true,
	"ROLLUP": true, "SELECT": true, "SKIP": true, "TABLE": true, "THEN": true,
	"TRIM": true, "TRUE": true, "UESCAPE": true, "UNION": true, "UNNEST": true,
	"USING": true, "VALUES": true, "WHEN": true, "WHERE": true, "WITH": true,
}

// QuoteIdent returns name as a delimited identifier: "na""me".
func QuoteIdent(name string) string {
	return pq.QuoteIdentifier(norm.NFC.String(name))
}

// Ident returns name unchanged when it is a safe bare identifier and
// delimited otherwise.
func Ident(name string) string {
	name = norm.NFC.String(name)
	if NeedsQuoting(name) {
		return pq.QuoteIdentifier(name)
	}
	return name
}

// NeedsQuoting reports whether name must be delimited to be read back as the
// same identifier.
func NeedsQuoting(name string) bool {
	if !bareIdentifier.MatchString(name) {
		return true
	}
	return reserved[strings.ToUpper(name)]
}

// Qualified joins the given parts as a dotted name, encoding each with Ident.
// Empty parts are skipped.
func Qualified(parts ...string) string {
	encoded := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		encoded = append(encoded, Ident(p))
	}
	return strings.Join(encoded, ".")
}

// EscapeDelimited escapes s for use between double quotes that are already
// present in the surrounding text.
func EscapeDelimited(s string) string {
	return strings.ReplaceAll(norm.NFC.String(s), `"`, `""`)
}

// Literal returns s as a string literal: 'it''s'.
func Literal(s string) string {
	return "'" + EscapeLiteral(s) + "'"
}

// EscapeLiteral escapes s for use between single quotes that are already
// present in the surrounding text. Values are compared byte for byte, so
// unlike identifiers they are not normalized.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ContainsPattern returns a LIKE literal matching any string containing s.
func ContainsPattern(s string) string {
	return Literal("%" + s + "%")
}

// DateLiteral returns s as a typed DATE literal.
func DateLiteral(s string) string {
	return "DATE " + Literal(s)
}

// IsToken reports whether s may be placed in an unquoted identifier position
// without encoding, e.g. a shard key substituted into a schema name.
func IsToken(s string) bool {
	return shardToken.MatchString(s)
}
