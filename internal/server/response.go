package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/fedunion/internal/catalog"
	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/store"
	"github.com/roach88/fedunion/internal/trino"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// errBadRequest marks client errors found before any work is done.
var errBadRequest = errors.New("bad request")

// errDisabled marks endpoints whose backing component is not configured.
var errDisabled = errors.New("disabled")

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, envelope{Success: false, Error: msg, Details: details})
}

// writeError maps err to a status code:
// validation 400, missing record 404, Trino failures 502, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, details := classify(err)

	level := s.logger.Warn
	if status >= http.StatusInternalServerError {
		level = s.logger.Error
	}
	level("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", RequestIDFrom(r.Context()),
		"error", err,
	)

	writeFailure(w, status, msg, details)
}

func classify(err error) (status int, msg string, details any) {
	var verrs queryir.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "invalid request", verrs
	}
	var verr queryir.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, "invalid request", queryir.ValidationErrors{verr}
	}
	var qerr *trino.QueryError
	if errors.As(err, &qerr) {
		return http.StatusBadGateway, qerr.Message, qerr
	}
	var herr *trino.HTTPError
	if errors.As(err, &herr) {
		return http.StatusBadGateway, herr.Error(), nil
	}

	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, catalog.ErrEmptyName):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error(), nil
	case errors.Is(err, errDisabled):
		return http.StatusServiceUnavailable, err.Error(), nil
	}
	return http.StatusInternalServerError, err.Error(), nil
}
