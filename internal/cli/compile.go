package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Record bool   // store the statement in the history database
}

// CompileResult is the JSON payload of the compile command.
type CompileResult struct {
	*querysql.GeneratedQuery
	HistoryID string `json:"historyId,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Compile a query request to Trino SQL",
		Long: `Compile a query request to a single Trino statement.

The request file may be JSON, YAML or CUE ("-" reads JSON from stdin).
Each table becomes one SELECT arm; the arms are joined with UNION ALL.
Physical table names are resolved through the configured table template
and the request's shard key.

Examples:
  fedunion compile request.json
  fedunion compile request.cue --qualify alias -o query.sql
  fedunion compile request.yaml --format json --record`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the SQL to this file")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the statement in the history database")

	return cmd
}

func runCompile(opts *CompileOptions, requestFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}

	req, err := LoadRequest(requestFile)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded %d table(s) from %s", len(req.Tables), requestFile)

	compiler := querysql.NewCompiler(cfg.CompilerOptions())
	gq, err := compiler.Compile(req)
	if err != nil {
		return formatter.Fail(err)
	}
	for _, w := range gq.Warnings {
		formatter.Warn("%s", w)
	}

	result := CompileResult{GeneratedQuery: gq}

	if opts.Record {
		logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
		st, err := openHistory(cfg, logger)
		if err != nil {
			return formatter.Fail(err)
		}
		if st == nil {
			return formatter.Fail(&LoadError{Code: ErrCodeHistory, Message: "--record needs history.enabled"})
		}
		defer closeHistory(st, logger)

		rec, err := store.NewRecorder(st, nil, nil).RecordQuery(commandContext(cmd), req, gq)
		if err != nil {
			return formatter.Fail(&LoadError{Code: ErrCodeHistory, Message: err.Error()})
		}
		result.HistoryID = rec.ID
		formatter.VerboseLog("Recorded query %s", rec.ID)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(gq.Query+"\n"), 0o644); err != nil {
			return formatter.Fail(&LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs the compiled statement.
func outputCompileSuccess(formatter *OutputFormatter, result CompileResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "✓ Compiled %d arm(s), wrote SQL to %s\n", len(result.Tables), outputFile)
	} else {
		fmt.Fprintln(formatter.Writer, strings.TrimRight(result.Query, "\n"))
	}
	if result.HistoryID != "" {
		fmt.Fprintf(formatter.GetErrWriter(), "history id: %s\n", result.HistoryID)
	}
	return nil
}

// commandContext returns cmd's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
