package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TableIndex is a position in QueryRequest.Tables.
type TableIndex int

// Alias returns the SQL alias assigned to the table at this index (1-based).
func (i TableIndex) Alias() string {
	return fmt.Sprintf("t%d", int(i)+1)
}

// TableSelection identifies one source table chosen by the user.
type TableSelection struct {
	Catalog   string `json:"catalog" yaml:"catalog"`
	Schema    string `json:"schema" yaml:"schema"`
	TableName string `json:"tableName" yaml:"table_name"`
}

// ColumnProjection selects one column, optionally renamed in the output.
type ColumnProjection struct {
	Name  string `json:"name" yaml:"name"`
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// JoinType is the SQL join kind.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// ValidJoinTypes lists the accepted join kinds.
var ValidJoinTypes = map[JoinType]bool{
	JoinInner: true,
	JoinLeft:  true,
	JoinRight: true,
	JoinFull:  true,
}

// Normalize upper-cases the join type and defaults an empty value to INNER.
func (j JoinType) Normalize() JoinType {
	if strings.TrimSpace(string(j)) == "" {
		return JoinInner
	}
	return JoinType(strings.ToUpper(strings.TrimSpace(string(j))))
}

// JoinSpec is one equality join attached to the arm of SourceTableIndex.
type JoinSpec struct {
	SourceTableIndex TableIndex `json:"sourceTableIndex" yaml:"source_table_index"`
	SourceColumn     string     `json:"sourceColumn" yaml:"source_column"`
	TargetTableIndex TableIndex `json:"targetTableIndex" yaml:"target_table_index"`
	TargetColumn     string     `json:"targetColumn" yaml:"target_column"`
	JoinType         JoinType   `json:"joinType,omitempty" yaml:"join_type,omitempty"`
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpLike      Operator = "LIKE"
	OpIn        Operator = "IN"
	OpBetween   Operator = "BETWEEN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// ValidOperators lists the accepted filter operators.
var ValidOperators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpLike: true, OpIn: true, OpBetween: true, OpIsNull: true, OpIsNotNull: true,
}

// Normalize upper-cases the operator and collapses inner whitespace, so
// "is  not null" becomes "IS NOT NULL".
func (o Operator) Normalize() Operator {
	return Operator(strings.ToUpper(strings.Join(strings.Fields(string(o)), " ")))
}

// IsComparison reports whether the operator takes a single typed literal.
func (o Operator) IsComparison() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// ValueType governs how a comparison literal is formatted.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueNumber ValueType = "number"
	ValueDate   ValueType = "date"
	ValueNull   ValueType = "null"
)

// ValidValueTypes lists the accepted value types.
var ValidValueTypes = map[ValueType]bool{
	ValueString: true,
	ValueNumber: true,
	ValueDate:   true,
	ValueNull:   true,
}

// Normalize lower-cases the value type and defaults an empty value to string.
func (v ValueType) Normalize() ValueType {
	if strings.TrimSpace(string(v)) == "" {
		return ValueString
	}
	return ValueType(strings.ToLower(strings.TrimSpace(string(v))))
}

// FilterSpec is one predicate on the table at TableIndex.
type FilterSpec struct {
	TableIndex TableIndex `json:"tableIndex" yaml:"table_index"`
	Column     string     `json:"column" yaml:"column"`
	Operator   Operator   `json:"operator" yaml:"operator"`
	Value      string     `json:"value,omitempty" yaml:"value,omitempty"`
	ValueType  ValueType  `json:"valueType,omitempty" yaml:"value_type,omitempty"`
}

// Limit is the requested row limit as it arrived on the wire. Clients send
// either a number or a string; Value coerces it.
type Limit string

// Value returns the limit as a positive integer. ok is false when no limit
// applies (absent or zero). Anything that is not a non-negative integer is an
// error.
func (l Limit) Value() (n int, ok bool, err error) {
	s := strings.TrimSpace(string(l))
	if s == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("limit %q is not an integer", string(l))
	}
	if n < 0 {
		return 0, false, fmt.Errorf("limit %d is negative", n)
	}
	if n == 0 {
		return 0, false, nil
	}
	return n, true, nil
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (l *Limit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Limit(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("limit must be a number or string: %w", err)
	}
	*l = Limit(n.String())
	return nil
}

// MarshalJSON emits the limit as a number when it is an integer and as a
// string otherwise, or null when absent.
func (l Limit) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(l))
	if s == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(l))
}

// UnmarshalYAML accepts any scalar.
func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: limit must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*l = ""
		return nil
	}
	*l = Limit(node.Value)
	return nil
}

// QueryRequest is the complete input of one compile call.
type QueryRequest struct {
	Tables        []TableSelection     `json:"tables" yaml:"tables"`
	SelectColumns [][]ColumnProjection `json:"selectColumns,omitempty" yaml:"select_columns,omitempty"`
	Joins         []JoinSpec           `json:"joins,omitempty" yaml:"joins,omitempty"`
	Filters       []FilterSpec         `json:"filters,omitempty" yaml:"filters,omitempty"`
	Limit         Limit                `json:"limit,omitempty" yaml:"limit,omitempty"`
	ShardKey      string               `json:"shardKey,omitempty" yaml:"shard_key,omitempty"`

	// Country is an older name for ShardKey, used when ShardKey is empty.
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Shard returns the shard key, falling back to Country.
func (r QueryRequest) Shard() string {
	if r.ShardKey != "" {
		return r.ShardKey
	}
	return r.Country
}

// Projection returns the projection list for table i. A missing entry means
// all columns.
func (r QueryRequest) Projection(i TableIndex) []ColumnProjection {
	if int(i) < 0 || int(i) >= len(r.SelectColumns) {
		return nil
	}
	return r.SelectColumns[i]
}

// JoinsFor returns the joins attached to table i, in request order.
func (r QueryRequest) JoinsFor(i TableIndex) []JoinSpec {
	var out []JoinSpec
	for _, j := range r.Joins {
		if j.SourceTableIndex == i {
			out = append(out, j)
		}
	}
	return out
}

// FiltersFor returns the filters on table i, in request order.
func (r QueryRequest) FiltersFor(i TableIndex) []FilterSpec {
	var out []FilterSpec
	for _, f := range r.Filters {
		if f.TableIndex == i {
			out = append(out, f)
		}
	}
	return out
}
