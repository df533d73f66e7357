package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/store"
	"github.com/roach88/fedunion/internal/trino"
)

// ExecuteOptions holds flags for the execute command.
type ExecuteOptions struct {
	*RootOptions
	MaxRows int // rows printed in text mode; 0 prints all
}

// ExecuteResult is the JSON payload of the execute command.
type ExecuteResult struct {
	Query     string         `json:"query"`
	HistoryID string         `json:"historyId,omitempty"`
	QueryID   string         `json:"queryId"`
	Columns   []trino.Column `json:"columns"`
	Rows      [][]any        `json:"rows"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecuteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "execute <request-file>",
		Short: "Compile a query request and run it on Trino",
		Long: `Compile a query request and run the statement on Trino.

The statement and the outcome of the run are recorded in the history
database unless history is disabled.

Exit codes:
  0 - Statement ran
  1 - Invalid request, or Trino rejected the statement
  2 - Command error (missing file, bad config, Trino unreachable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 100, "rows to print in text format (0 prints all)")

	return cmd
}

func runExecute(opts *ExecuteOptions, requestFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	req, err := LoadRequest(requestFile)
	if err != nil {
		return formatter.Fail(err)
	}
	gq, err := querysql.NewCompiler(cfg.CompilerOptions()).Compile(req)
	if err != nil {
		return formatter.Fail(err)
	}
	for _, w := range gq.Warnings {
		formatter.Warn("%s", w)
	}
	formatter.VerboseLog("Compiled %d arm(s):\n%s", len(gq.Tables), gq.Query)

	client, err := newTrinoClient(cfg, logger, nil)
	if err != nil {
		return formatter.Fail(err)
	}

	st, err := openHistory(cfg, logger)
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeHistory(st, logger)

	var recorder *store.Recorder
	var historyID string
	if st != nil {
		recorder = store.NewRecorder(st, nil, nil)
		rec, err := recorder.RecordQuery(ctx, req, gq)
		if err != nil {
			logger.Error("record query failed", "error", err)
		} else {
			historyID = rec.ID
		}
	}

	start := time.Now()
	res, execErr := client.Query(ctx, gq.Query)
	elapsed := time.Since(start)

	if historyID != "" {
		trinoID, rows := "", 0
		if res != nil {
			trinoID, rows = res.QueryID, len(res.Rows)
		}
		var qerr *trino.QueryError
		if errors.As(execErr, &qerr) {
			trinoID = qerr.QueryID
		}
		if _, err := recorder.RecordExecution(ctx, historyID, trinoID, rows, elapsed, execErr); err != nil {
			logger.Error("record execution failed", "history_id", historyID, "error", err)
		}
	}
	if execErr != nil {
		return formatter.Fail(execErr)
	}

	result := ExecuteResult{
		Query:     gq.Query,
		HistoryID: historyID,
		QueryID:   res.QueryID,
		Columns:   res.Columns,
		Rows:      res.Rows,
		Warnings:  gq.Warnings,
	}
	return outputExecuteSuccess(formatter, result, opts.MaxRows, elapsed)
}

// outputExecuteSuccess prints the result rows.
func outputExecuteSuccess(formatter *OutputFormatter, result ExecuteResult, maxRows int, elapsed time.Duration) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	header := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c.Name
	}
	shown := result.Rows
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	rows := make([][]string, len(shown))
	for i, row := range shown {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellText(v)
		}
		rows[i] = cells
	}
	if err := renderTable(formatter.Writer, header, rows); err != nil {
		return err
	}

	summary := fmt.Sprintf("%d row(s) in %s, query %s", len(result.Rows), elapsed.Round(time.Millisecond), result.QueryID)
	if len(shown) < len(result.Rows) {
		summary += fmt.Sprintf(" (showing first %d)", len(shown))
	}
	fmt.Fprintln(formatter.Writer, summary)
	if result.HistoryID != "" {
		fmt.Fprintf(formatter.GetErrWriter(), "history id: %s\n", result.HistoryID)
	}
	return nil
}
