// Package server exposes the compiler, metadata discovery and query history
// over HTTP.
//
// Every response uses the envelope {success, data | error, details}:
//
//	GET  /api/catalogs
//	GET  /api/catalogs/{catalog}/schemas
//	GET  /api/catalogs/{catalog}/schemas/{schema}/tables?country=
//	GET  /api/catalogs/{catalog}/schemas/{schema}/columns/{table}?country=
//	POST /api/columns
//	POST /api/generate
//	POST /api/execute
//	GET  /api/history
//	GET  /api/history/{id}
//	GET  /api/health
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/fedunion/internal/catalog"
	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/store"
	"github.com/roach88/fedunion/internal/trino"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Executor runs a compiled statement. *trino.Client implements it.
type Executor interface {
	Query(ctx context.Context, sql string) (*trino.Result, error)
}

// Options configures a Server.
type Options struct {
	Compiler *querysql.Compiler
	Catalog  *catalog.Service

	// Executor runs /api/execute statements. Nil disables the endpoint.
	Executor Executor

	// History records generated queries. Nil disables recording and the
	// history endpoints.
	History  *store.Store
	Recorder *store.Recorder

	// Registry receives the HTTP metrics and is served on /metrics.
	// Nil uses a private registry.
	Registry *prometheus.Registry

	// CORSOrigins defaults to every origin.
	CORSOrigins []string

	Logger *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	compiler *querysql.Compiler
	catalog  *catalog.Service
	executor Executor
	history  *store.Store
	recorder *store.Recorder
	logger   *slog.Logger
	metrics  *httpMetrics
	handler  http.Handler
}

// New creates a Server and its routes.
func New(opts Options) *Server {
	s := &Server{
		compiler: opts.Compiler,
		catalog:  opts.Catalog,
		executor: opts.Executor,
		history:  opts.History,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if s.compiler == nil {
		s.compiler = querysql.NewCompiler(querysql.Options{})
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.history != nil && s.recorder == nil {
		s.recorder = store.NewRecorder(s.history, nil, nil)
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s.metrics = newHTTPMetrics(reg)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/catalogs", s.handleCatalogs).Methods(http.MethodGet)
	api.HandleFunc("/catalogs/{catalog}/schemas", s.handleSchemas).Methods(http.MethodGet)
	api.HandleFunc("/catalogs/{catalog}/schemas/{schema}/tables", s.handleTables).Methods(http.MethodGet)
	api.HandleFunc("/catalogs/{catalog}/schemas/{schema}/columns/{table}", s.handleColumns).Methods(http.MethodGet)
	api.HandleFunc("/columns", s.handleDescribeAll).Methods(http.MethodPost)
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/execute", s.handleExecute).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", s.handleHistoryEntry).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.Use(s.requestID, s.accessLog)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)
	s.handler = s.recoverPanics(cors(router))
	return s
}

// recoverPanics turns handler panics into 500 responses and logs them.
func (s *Server) recoverPanics(h http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("panic in handler", "panic", fmt.Sprint(v...))
}
