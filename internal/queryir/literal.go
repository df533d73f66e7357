package queryir

import (
	"regexp"
	"strings"
	"time"
)

var numberLiteral = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// DateLayout is the accepted format of date filter values.
const DateLayout = "2006-01-02"

// IsNumber reports whether s is a plain decimal or scientific number literal.
func IsNumber(s string) bool {
	return numberLiteral.MatchString(strings.TrimSpace(s))
}

// IsDate reports whether s is a calendar date in DateLayout.
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// SplitList splits a comma-separated filter value into trimmed items,
// preserving order and empty items.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
