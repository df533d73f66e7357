// Package querysql compiles a queryir.QueryRequest into a single Trino
// statement: one SELECT per table, joined with UNION ALL.
package querysql

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/fedunion/internal/queryir"
)

// Options configures a Compiler.
type Options struct {
	Pattern        PatternConfig
	QualifyColumns QualifyMode
}

// CompiledUnit is the SELECT statement for one table.
type CompiledUnit struct {
	Index queryir.TableIndex
	Alias string
	SQL   string
}

// GeneratedQuery is the result of Compile: the statement plus an echo of the
// inputs it was built from.
type GeneratedQuery struct {
	Query    string                   `json:"query"`
	Tables   []queryir.TableSelection `json:"tables"`
	Joins    []queryir.JoinSpec       `json:"joins"`
	Filters  []queryir.FilterSpec     `json:"filters"`
	Limit    int                      `json:"limit,omitempty"`
	ShardKey string                   `json:"shardKey,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`

	Units []CompiledUnit `json:"-"`
}

// Compiler turns QueryRequests into SQL text. It performs no I/O and holds
// only immutable configuration, so one Compiler may serve concurrent calls.
type Compiler struct {
	resolver *Resolver
	qualify  QualifyMode
}

// NewCompiler creates a Compiler. An empty qualify mode defaults to
// QualifyCatalog.
func NewCompiler(opts Options) *Compiler {
	qualify := opts.QualifyColumns
	if qualify == "" {
		qualify = QualifyCatalog
	}
	return &Compiler{
		resolver: NewResolver(opts.Pattern),
		qualify:  qualify,
	}
}

// Resolver returns the physical name resolver used by the compiler.
func (c *Compiler) Resolver() *Resolver {
	return c.resolver
}

// Compile validates req and compiles it.
//
// Validation failures are returned as queryir.ValidationErrors listing every
// offending field; nothing is compiled in that case.
func (c *Compiler) Compile(req queryir.QueryRequest) (*GeneratedQuery, error) {
	result := queryir.ValidateWith(req, queryir.Options{Sharding: c.resolver.Pattern().Enabled})
	if err := result.Err(); err != nil {
		return nil, err
	}

	refs, err := c.resolveAll(req)
	if err != nil {
		return nil, err
	}

	units := make([]CompiledUnit, len(req.Tables))
	for i := range req.Tables {
		unit, err := c.compileUnit(req, queryir.TableIndex(i), refs)
		if err != nil {
			return nil, fmt.Errorf("compile table %d: %w", i, err)
		}
		units[i] = unit
	}

	limit, _, _ := req.Limit.Value()

	return &GeneratedQuery{
		Query:    composeUnion(units, limit),
		Tables:   nonNil(req.Tables),
		Joins:    nonNil(req.Joins),
		Filters:  nonNil(req.Filters),
		Limit:    limit,
		ShardKey: req.Shard(),
		Warnings: result.Warnings,
		Units:    units,
	}, nil
}

// CompileUnit compiles the SELECT for table idx alone. The request is not
// validated; callers must run queryir.Validate first.
func (c *Compiler) CompileUnit(req queryir.QueryRequest, idx queryir.TableIndex) (CompiledUnit, error) {
	if int(idx) < 0 || int(idx) >= len(req.Tables) {
		return CompiledUnit{}, fmt.Errorf("table index %d out of range [0, %d)", int(idx), len(req.Tables))
	}
	refs, err := c.resolveAll(req)
	if err != nil {
		return CompiledUnit{}, err
	}
	return c.compileUnit(req, idx, refs)
}

func (c *Compiler) resolveAll(req queryir.QueryRequest) ([]string, error) {
	refs := make([]string, len(req.Tables))
	for i, t := range req.Tables {
		ref, err := c.resolver.Resolve(t.TableName, req.Shard())
		if err != nil {
			return nil, fmt.Errorf("resolve table %d: %w", i, err)
		}
		refs[i] = ref
	}
	return refs, nil
}

// compileUnit assembles SELECT <cols> FROM <source> AS t<i+1> [JOIN ...] WHERE <preds>.
func (c *Compiler) compileUnit(req queryir.QueryRequest, idx queryir.TableIndex, refs []string) (CompiledUnit, error) {
	t := req.Tables[idx]
	alias := idx.Alias()

	where, err := compilePredicates(req, idx)
	if err != nil {
		return CompiledUnit{}, err
	}

	sb := sq.Select(c.compileColumns(t, idx, req.Projection(idx))...).
		From(fmt.Sprintf("%s AS %s", sourceRef(t, refs[idx]), alias))
	for _, j := range compileJoins(req, idx, refs) {
		sb = sb.JoinClause(j)
	}
	sb = sb.Where(where)

	sql, args, err := sb.ToSql()
	if err != nil {
		return CompiledUnit{}, fmt.Errorf("assemble select: %w", err)
	}
	if len(args) > 0 {
		return CompiledUnit{}, fmt.Errorf("assemble select: unexpected bound arguments")
	}

	return CompiledUnit{Index: idx, Alias: alias, SQL: sql}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
