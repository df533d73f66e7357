// Package catalog discovers Trino metadata (catalogs, schemas, tables and
// columns) for building query requests.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/sqlquote"
	"github.com/roach88/fedunion/internal/trino"
)

// ErrEmptyName is returned when a catalog, schema or table name is blank.
var ErrEmptyName = errors.New("catalog, schema and table names must be non-empty")

// Querier runs a metadata statement. *trino.Client implements it.
type Querier interface {
	Query(ctx context.Context, sql string) (*trino.Result, error)
}

// Options configures a Service.
type Options struct {
	Resolver *querysql.Resolver

	// DefaultShards is returned with the catalog list when sharding is
	// enabled.
	DefaultShards []string

	// CacheTTL is how long discovery results are kept. Zero disables caching.
	CacheTTL time.Duration

	// Concurrency bounds DescribeAll fan-out. Defaults to 8.
	Concurrency int

	Logger *slog.Logger
}

// CatalogList is the result of ListCatalogs. Countries holds the configured
// shard keys.
type CatalogList struct {
	Catalogs  []string `json:"catalogs"`
	Countries []string `json:"countries"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment"`
}

// TableRef identifies a table for DescribeAll.
type TableRef struct {
	Catalog   string `json:"catalog"`
	Schema    string `json:"schema"`
	TableName string `json:"tableName"`
}

// TableColumns is the DescribeAll outcome for one table. Exactly one of
// Columns and Error is set.
type TableColumns struct {
	Table   TableRef     `json:"table"`
	Columns []ColumnInfo `json:"columns,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Service answers metadata questions, caching results for CacheTTL.
type Service struct {
	q        Querier
	resolver *querysql.Resolver
	shards   []string
	cache    *cache.Cache
	group    singleflight.Group
	limit    int
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(q Querier, opts Options) *Service {
	s := &Service{
		q:        q,
		resolver: opts.Resolver,
		shards:   opts.DefaultShards,
		limit:    opts.Concurrency,
		logger:   opts.Logger,
	}
	if s.resolver == nil {
		s.resolver = querysql.NewResolver(querysql.PatternConfig{})
	}
	if s.limit <= 0 {
		s.limit = 8
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s
}

// ListCatalogs runs SHOW CATALOGS.
func (s *Service) ListCatalogs(ctx context.Context) (*CatalogList, error) {
	names, err := s.firstColumn(ctx, "catalogs", "SHOW CATALOGS")
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	countries := []string{}
	if s.resolver.Pattern().Enabled && len(s.shards) > 0 {
		countries = append(countries, s.shards...)
	}
	return &CatalogList{Catalogs: names, Countries: countries}, nil
}

// ListSchemas runs SHOW SCHEMAS FROM catalog.
func (s *Service) ListSchemas(ctx context.Context, catalog string) ([]string, error) {
	if err := requireNames(catalog); err != nil {
		return nil, err
	}
	sql := "SHOW SCHEMAS FROM " + sqlquote.Ident(catalog)
	names, err := s.firstColumn(ctx, cacheKey("schemas", catalog), sql)
	if err != nil {
		return nil, fmt.Errorf("list schemas of %s: %w", catalog, err)
	}
	return names, nil
}

// ListTables runs SHOW TABLES FROM catalog.schema. With a shard key and
// sharding enabled the list is narrowed with a LIKE pattern derived from the
// table template.
func (s *Service) ListTables(ctx context.Context, catalog, schema, shard string) ([]string, error) {
	if err := requireNames(catalog, schema); err != nil {
		return nil, err
	}
	pattern, err := s.resolver.TablePattern(shard)
	if err != nil {
		return nil, err
	}

	sql := "SHOW TABLES FROM " + sqlquote.Qualified(catalog, schema)
	if pattern != "" {
		sql += " LIKE " + sqlquote.Literal(pattern)
	}
	names, err := s.firstColumn(ctx, cacheKey("tables", catalog, schema, shard), sql)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s.%s: %w", catalog, schema, err)
	}
	return names, nil
}

// DescribeColumns runs DESCRIBE on the physical table for the shard key.
func (s *Service) DescribeColumns(ctx context.Context, catalog, schema, table, shard string) ([]ColumnInfo, error) {
	if err := requireNames(catalog, schema, table); err != nil {
		return nil, err
	}
	ref, err := s.resolver.Resolve(table, shard)
	if err != nil {
		return nil, err
	}

	sql := "DESCRIBE " + sqlquote.Qualified(catalog, schema) + "." + ref
	key := cacheKey("columns", catalog, schema, table, shard)
	v, err := s.cached(ctx, key, func(ctx context.Context) (any, error) {
		res, err := s.q.Query(ctx, sql)
		if err != nil {
			return nil, err
		}
		cols := make([]ColumnInfo, 0, len(res.Rows))
		for _, row := range res.Rows {
			cols = append(cols, ColumnInfo{
				Name:    cell(row, 0),
				Type:    cell(row, 1),
				Comment: cell(row, 3),
			})
		}
		return cols, nil
	})
	if err != nil {
		return nil, fmt.Errorf("describe %s.%s.%s: %w", catalog, schema, table, err)
	}
	return v.([]ColumnInfo), nil
}

// DescribeAll describes every table concurrently. A failure for one table is
// recorded in its TableColumns and does not affect the others. Results are in
// input order.
func (s *Service) DescribeAll(ctx context.Context, tables []TableRef, shard string) []TableColumns {
	results := make([]TableColumns, len(tables))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.limit)
	for i, t := range tables {
		eg.Go(func() error {
			cols, err := s.DescribeColumns(ctx, t.Catalog, t.Schema, t.TableName, shard)
			results[i] = TableColumns{Table: t}
			if err != nil {
				s.logger.Warn("describe failed", "table", t.Catalog+"."+t.Schema+"."+t.TableName, "error", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Columns = cols
			return nil
		})
	}
	_ = eg.Wait() // always nil

	return results
}

// Invalidate drops every cached result.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

// firstColumn runs sql and returns the first column of every row as text.
func (s *Service) firstColumn(ctx context.Context, key, sql string) ([]string, error) {
	v, err := s.cached(ctx, key, func(ctx context.Context) (any, error) {
		res, err := s.q.Query(ctx, sql)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(res.Rows))
		for _, row := range res.Rows {
			names = append(names, cell(row, 0))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// cached returns the cached value for key or loads it. Concurrent loads of
// the same key share one query. The shared query is detached from the
// cancellation of whichever caller started it; a caller whose context ends
// stops waiting without failing the others.
func (s *Service) cached(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
	}
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		v, err := load(shared)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetDefault(key, v)
		}
		return v, nil
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cacheKey(kind string, parts ...string) string {
	return kind + "\x00" + strings.Join(parts, "\x00")
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}

func requireNames(names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return ErrEmptyName
		}
	}
	return nil
}

