package querysql

import (
	"fmt"
	"strings"
)

// UnionSeparator joins the arms of the generated statement.
const UnionSeparator = "\nUNION ALL\n"

// composeUnion joins units in order and appends the row limit when limit > 0.
func composeUnion(units []CompiledUnit, limit int) string {
	arms := make([]string, len(units))
	for i, u := range units {
		arms[i] = u.SQL
	}
	sql := strings.Join(arms, UnionSeparator)
	if limit > 0 {
		sql += fmt.Sprintf("\nLIMIT %d", limit)
	}
	return sql
}
