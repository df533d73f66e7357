package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	CORSOrigins []string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API for browsing metadata, generating and running
federated queries, and reading the query history.

The listen address comes from app.host and app.port (or --listen-host,
--listen-port, or the PORT environment variable).

Example:
  fedunion serve --config config.yaml
  fedunion serve --listen-port 3000 --trino-host trino.internal --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.CORSOrigins, "cors-origin", nil, "allowed CORS origins (default any)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := newTrinoClient(cfg, logger, reg)
	if err != nil {
		return formatter.Fail(err)
	}

	st, err := openHistory(cfg, logger)
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeHistory(st, logger)

	compiler := querysql.NewCompiler(cfg.CompilerOptions())
	srv := server.New(server.Options{
		Compiler:    compiler,
		Catalog:     newCatalogService(cfg, client, compiler.Resolver(), logger),
		Executor:    client,
		History:     st,
		Registry:    reg,
		CORSOrigins: opts.CORSOrigins,
		Logger:      logger,
	})

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	logger.Info("server starting",
		"addr", cfg.ListenAddr(),
		"trino", cfg.TrinoURL(),
		"history", st != nil,
		"template", cfg.Patterns.CountryPattern)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", cfg.ListenAddr())

	if err := srv.Run(ctx, cfg.ListenAddr()); err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail(fmt.Errorf("server error: %w", err))
	}

	logger.Info("server stopped gracefully")
	return nil
}
