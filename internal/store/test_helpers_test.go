package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/fedunion/internal/testutil"
)

// createTestStore opens a fresh database in a temp dir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testQuery builds a query record with a deterministic timestamp.
func testQuery(id, hash string, at time.Time) QueryRecord {
	return QueryRecord{
		ID:          id,
		RequestHash: hash,
		Query:       `SELECT * FROM hive.dbo."orders" AS t1 WHERE 1=1`,
		Request:     json.RawMessage(`{"tables":[{"catalog":"hive","schema":"dbo","tableName":"orders"}]}`),
		Arms:        1,
		CreatedAt:   at,
	}
}

func at(seconds int) time.Time {
	return testutil.Epoch.Add(time.Duration(seconds) * time.Second)
}

func mustWriteQuery(t *testing.T, s *Store, rec QueryRecord) {
	t.Helper()
	if err := s.WriteQuery(t.Context(), rec); err != nil {
		t.Fatalf("WriteQuery(%s) failed: %v", rec.ID, err)
	}
}
