package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// QueryRecord is one generated statement.
type QueryRecord struct {
	ID          string          `json:"id"`
	RequestHash string          `json:"requestHash"`
	Query       string          `json:"query"`
	Request     json.RawMessage `json:"request"`
	ShardKey    string          `json:"shardKey,omitempty"`
	Arms        int             `json:"arms"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ExecutionRecord is one run of a recorded statement.
type ExecutionRecord struct {
	ID           string        `json:"id"`
	QueryID      string        `json:"queryId"`
	TrinoQueryID string        `json:"trinoQueryId,omitempty"`
	RowCount     int           `json:"rowCount"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"durationNs"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// DefaultListLimit caps ListQueries when no limit is given.
const DefaultListLimit = 50

const queryColumns = `id, request_hash, query, request_json, shard_key, arms, created_at`

// ListQueries returns the most recent query records, newest first.
// limit <= 0 uses DefaultListLimit.
//
// Returns an empty slice (not nil) if there are no records.
func (s *Store) ListQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+queryColumns+`
		FROM queries
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanQueries(rows)
}

// GetQuery returns the record with the given ID, or ErrNotFound.
func (s *Store) GetQuery(ctx context.Context, id string) (QueryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+queryColumns+`
		FROM queries
		WHERE id = ?
	`, id)

	rec, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QueryRecord{}, fmt.Errorf("query %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return QueryRecord{}, err
	}
	return rec, nil
}

// FindByHash returns every record generated from requests with the given
// canonical hash, newest first.
//
// Returns an empty slice (not nil) if there are no records.
func (s *Store) FindByHash(ctx context.Context, hash string) ([]QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+queryColumns+`
		FROM queries
		WHERE request_hash = ?
		ORDER BY created_at DESC, id COLLATE BINARY DESC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query by hash: %w", err)
	}
	defer rows.Close()

	return scanQueries(rows)
}

// ListExecutions returns the executions of one query, newest first.
//
// Returns an empty slice (not nil) if there are no records.
func (s *Store) ListExecutions(ctx context.Context, queryID string) ([]ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query_id, trino_query_id, row_count, error, duration_ms, created_at
		FROM executions
		WHERE query_id = ?
		ORDER BY created_at DESC, id COLLATE BINARY DESC
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	execs := []ExecutionRecord{}
	for rows.Next() {
		var (
			rec        ExecutionRecord
			durationMS int64
			createdAt  int64
		)
		if err := rows.Scan(&rec.ID, &rec.QueryID, &rec.TrinoQueryID, &rec.RowCount, &rec.Error, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		execs = append(execs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanQuery(sc scanner) (QueryRecord, error) {
	var (
		rec       QueryRecord
		request   string
		createdAt int64
	)
	err := sc.Scan(&rec.ID, &rec.RequestHash, &rec.Query, &request, &rec.ShardKey, &rec.Arms, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QueryRecord{}, err
		}
		return QueryRecord{}, fmt.Errorf("scan query: %w", err)
	}
	rec.Request = json.RawMessage(request)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}

func scanQueries(rows *sql.Rows) ([]QueryRecord, error) {
	records := []QueryRecord{}
	for rows.Next() {
		rec, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return records, nil
}
