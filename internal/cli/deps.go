package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/fedunion/internal/catalog"
	"github.com/roach88/fedunion/internal/config"
	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/store"
	"github.com/roach88/fedunion/internal/trino"
)

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a text logger on w, at debug level with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the configuration file, environment and any config flags
// set on cmd.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return cfg, nil
}

// newTrinoClient creates the statement client described by cfg. Metrics are
// registered with reg when it is non-nil.
func newTrinoClient(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*trino.Client, error) {
	var limiter *rate.Limiter
	if cfg.Trino.RateLimit > 0 {
		burst := cfg.Trino.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Trino.RateLimit), burst)
	}

	var metrics *trino.Metrics
	if reg != nil {
		metrics = trino.NewMetrics(reg)
	}

	client, err := trino.New(trino.Options{
		BaseURL:    cfg.TrinoURL(),
		User:       cfg.Trino.User,
		Password:   cfg.Trino.Password,
		Catalog:    cfg.Trino.Catalog,
		Schema:     cfg.Trino.Schema,
		HTTPClient: &http.Client{Timeout: cfg.Trino.Timeout},
		Limiter:    limiter,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return client, nil
}

// newCatalogService creates the metadata service on top of q.
func newCatalogService(cfg *config.Config, q catalog.Querier, resolver *querysql.Resolver, logger *slog.Logger) *catalog.Service {
	return catalog.NewService(q, catalog.Options{
		Resolver:      resolver,
		DefaultShards: cfg.Patterns.DefaultCountries,
		CacheTTL:      cfg.Metadata.CacheTTL,
		Concurrency:   cfg.Metadata.Concurrency,
		Logger:        logger,
	})
}

// openHistory opens the history database, or returns nil when history is
// disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	st, err := store.Open(cfg.History.Path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeHistory, Message: fmt.Sprintf("opening history database %s: %v", cfg.History.Path, err)}
	}
	logger.Debug("history database ready", "path", cfg.History.Path)
	return st, nil
}

// closeHistory closes st, logging any error.
func closeHistory(st *store.Store, logger *slog.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Error("error closing history database", "error", err)
	}
}
