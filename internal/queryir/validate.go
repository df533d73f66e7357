package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/fedunion/internal/sqlquote"
)

// Request validation error codes (E200-E299)
const (
	ErrNoTables           = "E200" // at least one table is required
	ErrEmptyIdentifier    = "E201" // catalog/schema/table/column must be non-empty
	ErrInvalidIdentifier  = "E202" // identifier contains a NUL byte
	ErrIndexOutOfRange    = "E203" // table index outside the tables list
	ErrUnknownOperator    = "E204" // operator not supported
	ErrUnknownValueType   = "E205" // value type not supported
	ErrInvalidLiteral     = "E206" // value does not match its value type
	ErrMalformedList      = "E207" // IN / BETWEEN list has the wrong shape
	ErrInvalidLimit       = "E208" // limit is not a non-negative integer
	ErrInvalidShardKey    = "E209" // shard key is not a bare token
	ErrUnknownJoinType    = "E210" // join type not supported
	ErrSelfJoin           = "E211" // join source and target are the same table
	ErrDuplicateAlias     = "E212" // join target alias already used in the arm
	ErrProjectionOverflow = "E213" // more projection lists than tables
	ErrArityMismatch      = "E214" // UNION ALL arms project different column counts
)

// ValidationError describes one invalid field of a QueryRequest.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is the full list of problems found in a request.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// ValidationResult holds the outcome of Validate.
type ValidationResult struct {
	// Errors lists every rejected field. Empty means the request compiles.
	Errors ValidationErrors

	// Warnings lists problems that cannot be decided without live metadata.
	Warnings []string
}

// Err returns Errors as an error, or nil when there are none.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors
}

// Options adjusts Validate to the compiler configuration.
type Options struct {
	// Sharding reports whether the shard key is substituted into physical
	// table names. The shard key is only checked when it is.
	Sharding bool
}

// Validate checks a request before compilation, assuming sharding is
// enabled. Returns all errors found (does not fail-fast).
func Validate(req QueryRequest) ValidationResult {
	return ValidateWith(req, Options{Sharding: true})
}

// ValidateWith is Validate for a given compiler configuration.
func ValidateWith(req QueryRequest, opts Options) ValidationResult {
	v := &validator{n: len(req.Tables)}

	if len(req.Tables) == 0 {
		v.addError("tables", ErrNoTables, "at least one table is required")
	}
	for i, t := range req.Tables {
		v.checkIdent(fmt.Sprintf("tables[%d].catalog", i), t.Catalog)
		v.checkIdent(fmt.Sprintf("tables[%d].schema", i), t.Schema)
		v.checkIdent(fmt.Sprintf("tables[%d].tableName", i), t.TableName)
	}

	v.validateProjections(req)
	for i, j := range req.Joins {
		v.validateJoin(i, j, req)
	}
	for i, f := range req.Filters {
		v.validateFilter(i, f)
	}

	if _, _, err := req.Limit.Value(); err != nil {
		v.addError("limit", ErrInvalidLimit, err.Error())
	}
	if shard := req.Shard(); opts.Sharding && shard != "" && !sqlquote.IsToken(shard) {
		v.addError("shardKey", ErrInvalidShardKey,
			fmt.Sprintf("shard key %q must contain only letters, digits and underscores", shard))
	}

	return ValidationResult{Errors: v.errors, Warnings: v.warnings}
}

// validator accumulates errors and warnings during traversal.
type validator struct {
	n        int
	errors   ValidationErrors
	warnings []string
}

func (v *validator) addError(field, code, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) checkIdent(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.addError(field, ErrEmptyIdentifier, "must be non-empty")
		return
	}
	if strings.ContainsRune(value, 0) {
		v.addError(field, ErrInvalidIdentifier, "must not contain NUL bytes")
	}
}

func (v *validator) checkIndex(field string, idx TableIndex) bool {
	if int(idx) < 0 || int(idx) >= v.n {
		v.addError(field, ErrIndexOutOfRange,
			"table index %d out of range [0, %d)", int(idx), v.n)
		return false
	}
	return true
}

// validateProjections checks projection entries and UNION ALL arity.
func (v *validator) validateProjections(req QueryRequest) {
	if len(req.SelectColumns) > len(req.Tables) {
		v.addError("selectColumns", ErrProjectionOverflow,
			"%d projection lists for %d tables", len(req.SelectColumns), len(req.Tables))
	}
	for i, cols := range req.SelectColumns {
		for j, c := range cols {
			v.checkIdent(fmt.Sprintf("selectColumns[%d][%d].name", i, j), c.Name)
			if strings.ContainsRune(c.Alias, 0) {
				v.addError(fmt.Sprintf("selectColumns[%d][%d].alias", i, j), ErrInvalidIdentifier,
					"must not contain NUL bytes")
			}
		}
	}

	if len(req.Tables) < 2 {
		return
	}
	arity := -1
	var star []TableIndex
	for i := range req.Tables {
		cols := req.Projection(TableIndex(i))
		if len(cols) == 0 {
			star = append(star, TableIndex(i))
			continue
		}
		if arity == -1 {
			arity = len(cols)
			continue
		}
		if len(cols) != arity {
			v.addError(fmt.Sprintf("selectColumns[%d]", i), ErrArityMismatch,
				"arm %d projects %d column(s) but earlier arms project %d", i+1, len(cols), arity)
		}
	}
	if len(star) == 0 {
		return
	}

	aliases := make([]string, len(star))
	for k, idx := range star {
		aliases[k] = idx.Alias()
	}
	if len(star) < len(req.Tables) {
		v.addWarning("UNION ALL arity not verified: %s select all columns while other arms project %d",
			strings.Join(aliases, ", "), arity)
		return
	}

	// SELECT * over a joined source returns the columns of every joined
	// table, so star arms reading different numbers of tables cannot line up.
	reads := make([]string, len(star))
	first := 1 + joinsFrom(req, star[0])
	uneven := false
	for k, idx := range star {
		n := 1 + joinsFrom(req, idx)
		if n != first {
			uneven = true
		}
		reads[k] = fmt.Sprintf("%s reads %d table(s)", aliases[k], n)
	}
	if uneven {
		v.addWarning("UNION ALL arity not verified: %s", strings.Join(reads, ", "))
	}
}

// joinsFrom counts the in-range joins attached to the arm of table i.
func joinsFrom(req QueryRequest, i TableIndex) int {
	n := 0
	for _, j := range req.Joins {
		if j.SourceTableIndex != i || j.SourceTableIndex == j.TargetTableIndex {
			continue
		}
		if int(j.TargetTableIndex) < 0 || int(j.TargetTableIndex) >= len(req.Tables) {
			continue
		}
		n++
	}
	return n
}

// validateJoin checks one join: indices, join type, columns, and aliasing.
func (v *validator) validateJoin(i int, j JoinSpec, req QueryRequest) {
	field := fmt.Sprintf("joins[%d]", i)

	srcOK := v.checkIndex(field+".sourceTableIndex", j.SourceTableIndex)
	tgtOK := v.checkIndex(field+".targetTableIndex", j.TargetTableIndex)
	v.checkIdent(field+".sourceColumn", j.SourceColumn)
	v.checkIdent(field+".targetColumn", j.TargetColumn)

	if jt := j.JoinType.Normalize(); !ValidJoinTypes[jt] {
		v.addError(field+".joinType", ErrUnknownJoinType, "unsupported join type %q", string(j.JoinType))
	}

	if !srcOK || !tgtOK {
		return
	}
	if j.SourceTableIndex == j.TargetTableIndex {
		v.addError(field, ErrSelfJoin,
			"table %d cannot join itself (alias %s would be defined twice)",
			int(j.SourceTableIndex), j.SourceTableIndex.Alias())
		return
	}

	// An earlier join on the same arm that already introduced this alias.
	for k := 0; k < i; k++ {
		prev := req.Joins[k]
		if prev.SourceTableIndex == j.SourceTableIndex && prev.TargetTableIndex == j.TargetTableIndex {
			v.addError(field+".targetTableIndex", ErrDuplicateAlias,
				"alias %s is already joined to %s by joins[%d]",
				j.TargetTableIndex.Alias(), j.SourceTableIndex.Alias(), k)
			return
		}
	}
}

// validateFilter checks one filter: index, column, operator and value shape.
func (v *validator) validateFilter(i int, f FilterSpec) {
	field := fmt.Sprintf("filters[%d]", i)

	v.checkIndex(field+".tableIndex", f.TableIndex)
	v.checkIdent(field+".column", f.Column)

	op := f.Operator.Normalize()
	if !ValidOperators[op] {
		v.addError(field+".operator", ErrUnknownOperator, "unsupported operator %q", string(f.Operator))
		return
	}

	switch op {
	case OpIsNull, OpIsNotNull, OpLike:
		// value type is ignored
	case OpIn:
		items := SplitList(f.Value)
		for k, item := range items {
			if item == "" {
				v.addError(field+".value", ErrMalformedList,
					"IN list item %d is empty (value %q)", k+1, f.Value)
				return
			}
		}
	case OpBetween:
		items := SplitList(f.Value)
		if len(items) != 2 {
			v.addError(field+".value", ErrMalformedList,
				"BETWEEN expects exactly 2 comma-separated values, got %d", len(items))
			return
		}
		if items[0] == "" || items[1] == "" {
			v.addError(field+".value", ErrMalformedList, "BETWEEN bounds must be non-empty")
		}
	default:
		v.validateLiteral(field, f)
	}
}

// validateLiteral checks the value of a comparison filter against its type.
func (v *validator) validateLiteral(field string, f FilterSpec) {
	vt := f.ValueType.Normalize()
	if !ValidValueTypes[vt] {
		v.addError(field+".valueType", ErrUnknownValueType, "unsupported value type %q", string(f.ValueType))
		return
	}
	switch vt {
	case ValueNumber:
		if !IsNumber(f.Value) {
			v.addError(field+".value", ErrInvalidLiteral, "%q is not a number", f.Value)
		}
	case ValueDate:
		if !IsDate(f.Value) {
			v.addError(field+".value", ErrInvalidLiteral, "%q is not a date (%s)", f.Value, DateLayout)
		}
	}
}
