package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/fedunion/internal/catalog"
	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/store"
	"github.com/roach88/fedunion/internal/trino"
)

const healthMessage = "Trino UNION Generator API is running"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: healthMessage})
}

func (s *Server) handleCatalogs(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, r, fmt.Errorf("metadata discovery %w", errDisabled))
		return
	}
	list, err := s.catalog.ListCatalogs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, list)
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, r, fmt.Errorf("metadata discovery %w", errDisabled))
		return
	}
	vars := mux.Vars(r)
	schemas, err := s.catalog.ListSchemas(r.Context(), vars["catalog"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, schemas)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, r, fmt.Errorf("metadata discovery %w", errDisabled))
		return
	}
	vars := mux.Vars(r)
	tables, err := s.catalog.ListTables(r.Context(), vars["catalog"], vars["schema"], r.URL.Query().Get("country"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, tables)
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, r, fmt.Errorf("metadata discovery %w", errDisabled))
		return
	}
	vars := mux.Vars(r)
	cols, err := s.catalog.DescribeColumns(r.Context(), vars["catalog"], vars["schema"], vars["table"], r.URL.Query().Get("country"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, cols)
}

// describeRequest is the body of POST /api/columns.
type describeRequest struct {
	Tables  []catalog.TableRef `json:"tables"`
	Country string             `json:"country,omitempty"`
}

func (s *Server) handleDescribeAll(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, r, fmt.Errorf("metadata discovery %w", errDisabled))
		return
	}
	var req describeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Tables) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: tables must not be empty", errBadRequest))
		return
	}
	writeData(w, s.catalog.DescribeAll(r.Context(), req.Tables, req.Country))
}

// generateResponse is the data of POST /api/generate.
type generateResponse struct {
	*querysql.GeneratedQuery
	HistoryID string `json:"historyId,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, gq, ok := s.compile(w, r)
	if !ok {
		return
	}
	resp := generateResponse{GeneratedQuery: gq}
	if rec, ok := s.record(r, req, gq); ok {
		resp.HistoryID = rec.ID
	}
	writeData(w, resp)
}

// executeResponse is the data of POST /api/execute.
type executeResponse struct {
	Query     string         `json:"query"`
	HistoryID string         `json:"historyId,omitempty"`
	QueryID   string         `json:"queryId"`
	Columns   []trino.Column `json:"columns"`
	Rows      [][]any        `json:"rows"`
	Warnings  []string       `json:"warnings,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		s.writeError(w, r, fmt.Errorf("query execution %w", errDisabled))
		return
	}
	req, gq, ok := s.compile(w, r)
	if !ok {
		return
	}
	rec, recorded := s.record(r, req, gq)

	start := time.Now()
	res, err := s.executor.Query(r.Context(), gq.Query)
	elapsed := time.Since(start)

	if recorded {
		var trinoID string
		rows := 0
		if res != nil {
			trinoID, rows = res.QueryID, len(res.Rows)
		}
		var qerr *trino.QueryError
		if errors.As(err, &qerr) {
			trinoID = qerr.QueryID
		}
		if _, rerr := s.recorder.RecordExecution(r.Context(), rec.ID, trinoID, rows, elapsed, err); rerr != nil {
			s.logger.Error("record execution failed", "history_id", rec.ID, "error", rerr)
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeData(w, executeResponse{
		Query:     gq.Query,
		HistoryID: rec.ID,
		QueryID:   res.QueryID,
		Columns:   res.Columns,
		Rows:      res.Rows,
		Warnings:  gq.Warnings,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, fmt.Errorf("query history %w", errDisabled))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		limit = n
	}
	records, err := s.history.ListQueries(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, records)
}

// historyEntry is the data of GET /api/history/{id}.
type historyEntry struct {
	store.QueryRecord
	Executions []store.ExecutionRecord `json:"executions"`
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, fmt.Errorf("query history %w", errDisabled))
		return
	}
	id := mux.Vars(r)["id"]
	rec, err := s.history.GetQuery(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	execs, err := s.history.ListExecutions(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, historyEntry{QueryRecord: rec, Executions: execs})
}

// compile decodes and compiles the request body. On failure the error
// response has been written and ok is false.
func (s *Server) compile(w http.ResponseWriter, r *http.Request) (req queryir.QueryRequest, gq *querysql.GeneratedQuery, ok bool) {
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return req, nil, false
	}
	gq, err := s.compiler.Compile(req)
	if err != nil {
		s.writeError(w, r, err)
		return req, nil, false
	}
	for _, warning := range gq.Warnings {
		s.logger.Warn("request warning", "warning", warning, "request_id", RequestIDFrom(r.Context()))
	}
	return req, gq, true
}

// record stores gq in history. Recording failures are logged and do not fail
// the request.
func (s *Server) record(r *http.Request, req queryir.QueryRequest, gq *querysql.GeneratedQuery) (store.QueryRecord, bool) {
	if s.recorder == nil {
		return store.QueryRecord{}, false
	}
	rec, err := s.recorder.RecordQuery(r.Context(), req, gq)
	if err != nil {
		s.logger.Error("record query failed", "error", err, "request_id", RequestIDFrom(r.Context()))
		return store.QueryRecord{}, false
	}
	return rec, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}
