package store

import (
	"errors"
	"testing"
	"time"

	"github.com/roach88/fedunion/internal/canonical"
	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/testutil"
)

func compileTestRequest(t *testing.T, req queryir.QueryRequest) *querysql.GeneratedQuery {
	t.Helper()
	gq, err := querysql.NewCompiler(querysql.Options{}).Compile(req)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return gq
}

func testRequest() queryir.QueryRequest {
	return queryir.QueryRequest{
		Tables: []queryir.TableSelection{
			{Catalog: "hive", Schema: "dbo", TableName: "orders"},
			{Catalog: "hive", Schema: "dbo", TableName: "orders_archive"},
		},
		Limit: "10",
	}
}

func TestRecorder_RecordQuery(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, testutil.NewSequenceIDGenerator("q"), testutil.NewDeterministicClock())

	req := testRequest()
	gq := compileTestRequest(t, req)

	got, err := rec.RecordQuery(t.Context(), req, gq)
	if err != nil {
		t.Fatalf("RecordQuery() failed: %v", err)
	}

	if got.ID != "q-000001" {
		t.Errorf("ID = %q, want q-000001", got.ID)
	}
	if got.Arms != 2 {
		t.Errorf("Arms = %d, want 2", got.Arms)
	}
	if !got.CreatedAt.Equal(testutil.Epoch.Add(time.Second)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	wantHash, err := canonical.RequestHash(req)
	if err != nil {
		t.Fatalf("RequestHash() failed: %v", err)
	}
	if got.RequestHash != wantHash {
		t.Errorf("RequestHash = %q, want %q", got.RequestHash, wantHash)
	}

	stored, err := s.GetQuery(t.Context(), got.ID)
	if err != nil {
		t.Fatalf("GetQuery() failed: %v", err)
	}
	if stored.Query != gq.Query {
		t.Errorf("stored query = %q, want %q", stored.Query, gq.Query)
	}
	wantJSON, _ := canonical.Marshal(req)
	if string(stored.Request) != string(wantJSON) {
		t.Errorf("stored request = %s, want %s", stored.Request, wantJSON)
	}
}

func TestRecorder_SameRequestSameHash(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, testutil.NewSequenceIDGenerator("q"), testutil.NewDeterministicClock())

	req := testRequest()
	gq := compileTestRequest(t, req)

	first, err := rec.RecordQuery(t.Context(), req, gq)
	if err != nil {
		t.Fatalf("RecordQuery() failed: %v", err)
	}
	second, err := rec.RecordQuery(t.Context(), req, gq)
	if err != nil {
		t.Fatalf("RecordQuery() failed: %v", err)
	}

	if first.ID == second.ID {
		t.Error("expected distinct record IDs")
	}
	if first.RequestHash != second.RequestHash {
		t.Errorf("hashes differ: %s vs %s", first.RequestHash, second.RequestHash)
	}

	matches, err := s.FindByHash(t.Context(), first.RequestHash)
	if err != nil {
		t.Fatalf("FindByHash() failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(matches))
	}
}

func TestRecorder_RecordExecution(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, testutil.NewSequenceIDGenerator("r"), testutil.NewDeterministicClock())

	req := testRequest()
	q, err := rec.RecordQuery(t.Context(), req, compileTestRequest(t, req))
	if err != nil {
		t.Fatalf("RecordQuery() failed: %v", err)
	}

	ok, err := rec.RecordExecution(t.Context(), q.ID, "trino-1", 7, 1234567*time.Microsecond, nil)
	if err != nil {
		t.Fatalf("RecordExecution() failed: %v", err)
	}
	if ok.Duration != 1234*time.Millisecond {
		t.Errorf("Duration = %v, want truncation to milliseconds", ok.Duration)
	}

	failed, err := rec.RecordExecution(t.Context(), q.ID, "", 0, time.Second, errors.New("line 1:8: Table not found"))
	if err != nil {
		t.Fatalf("RecordExecution() failed: %v", err)
	}
	if failed.Error != "line 1:8: Table not found" {
		t.Errorf("Error = %q", failed.Error)
	}

	execs, err := s.ListExecutions(t.Context(), q.ID)
	if err != nil {
		t.Fatalf("ListExecutions() failed: %v", err)
	}
	if len(execs) != 2 || execs[0].ID != failed.ID || execs[1].RowCount != 7 {
		t.Errorf("ListExecutions() = %+v", execs)
	}
}

func TestNewRecorder_Defaults(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, nil, nil)

	req := testRequest()
	got, err := rec.RecordQuery(t.Context(), req, compileTestRequest(t, req))
	if err != nil {
		t.Fatalf("RecordQuery() failed: %v", err)
	}
	if len(got.ID) != 36 {
		t.Errorf("expected UUID ID, got %q", got.ID)
	}
}
