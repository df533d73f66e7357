package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/sqlquote"
)

// alwaysTrue is the WHERE clause of a table without filters.
const alwaysTrue = "1=1"

// compilePredicates returns the WHERE expression for table idx: every filter
// on that table joined with AND, or 1=1 when there are none.
func compilePredicates(req queryir.QueryRequest, idx queryir.TableIndex) (string, error) {
	filters := req.FiltersFor(idx)
	if len(filters) == 0 {
		return alwaysTrue, nil
	}

	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		sql, err := compilePredicate(idx, f)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " AND "), nil
}

// compilePredicate compiles one filter to a boolean expression.
func compilePredicate(idx queryir.TableIndex, f queryir.FilterSpec) (string, error) {
	col := idx.Alias() + "." + sqlquote.Ident(f.Column)
	op := f.Operator.Normalize()

	switch op {
	case queryir.OpIsNull, queryir.OpIsNotNull:
		return fmt.Sprintf("%s %s", col, op), nil

	case queryir.OpLike:
		return fmt.Sprintf("%s LIKE %s", col, sqlquote.ContainsPattern(f.Value)), nil

	case queryir.OpIn:
		items := queryir.SplitList(f.Value)
		quoted := make([]string, len(items))
		for i, item := range items {
			if item == "" {
				return "", fmt.Errorf("IN list for %s has an empty item", col)
			}
			quoted[i] = sqlquote.Literal(item)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(quoted, ", ")), nil

	case queryir.OpBetween:
		items := queryir.SplitList(f.Value)
		if len(items) != 2 {
			return "", fmt.Errorf("BETWEEN for %s needs exactly 2 values, got %d", col, len(items))
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", col,
			sqlquote.Literal(items[0]), sqlquote.Literal(items[1])), nil
	}

	if !op.IsComparison() {
		return "", fmt.Errorf("unsupported operator: %q", string(f.Operator))
	}
	lit, err := compileLiteral(f.Value, f.ValueType.Normalize())
	if err != nil {
		return "", fmt.Errorf("filter on %s: %w", col, err)
	}
	return fmt.Sprintf("%s %s %s", col, op, lit), nil
}

// compileLiteral formats a comparison value according to its type.
func compileLiteral(value string, vt queryir.ValueType) (string, error) {
	switch vt {
	case queryir.ValueString:
		return sqlquote.Literal(value), nil
	case queryir.ValueNumber:
		// Emitted raw, so checked again for callers that skip Validate.
		if !queryir.IsNumber(value) {
			return "", fmt.Errorf("%q is not a number", value)
		}
		return strings.TrimSpace(value), nil
	case queryir.ValueDate:
		if !queryir.IsDate(value) {
			return "", fmt.Errorf("%q is not a date", value)
		}
		return sqlquote.DateLiteral(strings.TrimSpace(value)), nil
	case queryir.ValueNull:
		return "NULL", nil
	default:
		return "", fmt.Errorf("unsupported value type: %q", string(vt))
	}
}
