package store

import (
	"context"
	"fmt"
)

// WriteQuery inserts a query record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteQuery(ctx context.Context, rec QueryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries
		(id, request_hash, query, request_json, shard_key, arms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.RequestHash,
		rec.Query,
		string(rec.Request),
		rec.ShardKey,
		rec.Arms,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write query: %w", err)
	}
	return nil
}

// WriteExecution inserts an execution record.
// The query referenced by QueryID must exist (foreign key constraint).
func (s *Store) WriteExecution(ctx context.Context, rec ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(id, query_id, trino_query_id, row_count, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.QueryID,
		rec.TrinoQueryID,
		rec.RowCount,
		rec.Error,
		rec.Duration.Milliseconds(),
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}
	return nil
}
