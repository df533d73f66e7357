package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/fedunion/internal/canonical"
	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/querysql"
)

// Recorder turns compile and execute outcomes into history records.
type Recorder struct {
	store *Store
	ids   IDGenerator
	clock Clock
}

// NewRecorder creates a Recorder. Nil ids or clock use UUIDv7Generator and
// SystemClock.
func NewRecorder(s *Store, ids IDGenerator, clock Clock) *Recorder {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Recorder{store: s, ids: ids, clock: clock}
}

// RecordQuery stores a generated statement with its request.
func (r *Recorder) RecordQuery(ctx context.Context, req queryir.QueryRequest, gq *querysql.GeneratedQuery) (QueryRecord, error) {
	request, err := canonical.Marshal(req)
	if err != nil {
		return QueryRecord{}, fmt.Errorf("record query: %w", err)
	}
	hash, err := canonical.RequestHash(req)
	if err != nil {
		return QueryRecord{}, fmt.Errorf("record query: %w", err)
	}

	rec := QueryRecord{
		ID:          r.ids.Generate(),
		RequestHash: hash,
		Query:       gq.Query,
		Request:     request,
		ShardKey:    gq.ShardKey,
		Arms:        len(gq.Tables),
		CreatedAt:   r.clock.Now().UTC().Truncate(time.Millisecond),
	}
	if err := r.store.WriteQuery(ctx, rec); err != nil {
		return QueryRecord{}, err
	}
	return rec, nil
}

// RecordExecution stores the outcome of running a recorded statement.
// execErr is the error returned by the engine, if any.
func (r *Recorder) RecordExecution(ctx context.Context, queryID, trinoQueryID string, rows int, elapsed time.Duration, execErr error) (ExecutionRecord, error) {
	rec := ExecutionRecord{
		ID:           r.ids.Generate(),
		QueryID:      queryID,
		TrinoQueryID: trinoQueryID,
		RowCount:     rows,
		Duration:     elapsed.Truncate(time.Millisecond),
		CreatedAt:    r.clock.Now().UTC().Truncate(time.Millisecond),
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}
	if err := r.store.WriteExecution(ctx, rec); err != nil {
		return ExecutionRecord{}, err
	}
	return rec, nil
}
