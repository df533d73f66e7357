package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fedunion/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	Hash  string // show records with this request hash
}

// HistoryEntry is the JSON payload of `history <id>`.
type HistoryEntry struct {
	store.QueryRecord
	Executions []store.ExecutionRecord `json:"executions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show recorded queries",
		Long: `Show recorded queries, newest first.

With an id, print that query's statement, request and executions.
With --hash, list every query generated from an identical request.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(opts, id, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", store.DefaultListLimit, "maximum number of queries to list")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "list queries with this request hash")

	return cmd
}

func runHistory(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	st, err := openHistory(cfg, logger)
	if err != nil {
		return formatter.Fail(err)
	}
	if st == nil {
		return formatter.Fail(&LoadError{Code: ErrCodeHistory, Message: "history is disabled (history.enabled=false)"})
	}
	defer closeHistory(st, logger)

	if id != "" {
		rec, err := st.GetQuery(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no query with id %s", id), nil)
			return NewExitError(ExitFailure, "query not found")
		}
		if err != nil {
			return formatter.Fail(&LoadError{Code: ErrCodeHistory, Message: err.Error()})
		}
		execs, err := st.ListExecutions(ctx, id)
		if err != nil {
			return formatter.Fail(&LoadError{Code: ErrCodeHistory, Message: err.Error()})
		}
		return outputHistoryEntry(formatter, HistoryEntry{QueryRecord: rec, Executions: execs})
	}

	var records []store.QueryRecord
	if opts.Hash != "" {
		records, err = st.FindByHash(ctx, opts.Hash)
	} else {
		records, err = st.ListQueries(ctx, opts.Limit)
	}
	if err != nil {
		return formatter.Fail(&LoadError{Code: ErrCodeHistory, Message: err.Error()})
	}
	return outputHistoryList(formatter, records)
}

func outputHistoryList(f *OutputFormatter, records []store.QueryRecord) error {
	if f.Format == "json" {
		return f.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(f.Writer, "No queries recorded.")
		return nil
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			fmt.Sprint(r.Arms),
			r.ShardKey,
			shortHash(r.RequestHash),
		}
	}
	return renderTable(f.Writer, []string{"ID", "Created", "Arms", "Shard", "Request"}, rows)
}

func outputHistoryEntry(f *OutputFormatter, entry HistoryEntry) error {
	if f.Format == "json" {
		return f.Success(entry)
	}

	w := f.Writer
	fmt.Fprintf(w, "ID:       %s\n", entry.ID)
	fmt.Fprintf(w, "Created:  %s\n", entry.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Request:  %s\n", entry.RequestHash)
	if entry.ShardKey != "" {
		fmt.Fprintf(w, "Shard:    %s\n", entry.ShardKey)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.TrimRight(entry.Query, "\n"))

	if f.Verbose {
		pretty, err := json.MarshalIndent(entry.Request, "", "  ")
		if err == nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, string(pretty))
		}
	}

	if len(entry.Executions) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	rows := make([][]string, len(entry.Executions))
	for i, e := range entry.Executions {
		outcome := fmt.Sprintf("%d row(s)", e.RowCount)
		if e.Error != "" {
			outcome = "error: " + e.Error
		}
		rows[i] = []string{
			e.CreatedAt.Format(time.RFC3339),
			e.TrinoQueryID,
			e.Duration.String(),
			outcome,
		}
	}
	return renderTable(w, []string{"Ran", "Trino query", "Duration", "Outcome"}, rows)
}

// shortHash abbreviates a request hash for table output.
func shortHash(h string) string {
	const n = 16
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[i+1:]
	}
	if len(h) > n {
		return h[:n]
	}
	return h
}
