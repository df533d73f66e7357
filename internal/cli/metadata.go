package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fedunion/internal/catalog"
	"github.com/roach88/fedunion/internal/querysql"
)

// MetadataOptions holds flags shared by the discovery commands.
type MetadataOptions struct {
	*RootOptions
	Country string // shard key used to resolve physical tables
}

// NewCatalogsCommand creates the catalogs command.
func NewCatalogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetadataOptions{RootOptions: rootOpts}
	return &cobra.Command{
		Use:           "catalogs",
		Short:         "List Trino catalogs and the configured shard keys",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(opts, cmd, func(svc *catalog.Service, f *OutputFormatter) error {
				list, err := svc.ListCatalogs(commandContext(cmd))
				if err != nil {
					return err
				}
				if f.Format == "json" {
					return f.Success(list)
				}
				printList(f, list.Catalogs)
				if len(list.Countries) > 0 {
					fmt.Fprintf(f.Writer, "\nshard keys: %s\n", strings.Join(list.Countries, ", "))
				}
				return nil
			})
		},
	}
}

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetadataOptions{RootOptions: rootOpts}
	return &cobra.Command{
		Use:           "schemas <catalog>",
		Short:         "List the schemas of a catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(opts, cmd, func(svc *catalog.Service, f *OutputFormatter) error {
				schemas, err := svc.ListSchemas(commandContext(cmd), args[0])
				if err != nil {
					return err
				}
				return outputList(f, schemas)
			})
		},
	}
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetadataOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "tables <catalog> <schema>",
		Short: "List the tables of a schema",
		Long: `List the tables of a schema.

With --country and sharding enabled, only tables matching the shard's
physical name pattern are listed.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(opts, cmd, func(svc *catalog.Service, f *OutputFormatter) error {
				tables, err := svc.ListTables(commandContext(cmd), args[0], args[1], opts.Country)
				if err != nil {
					return err
				}
				return outputList(f, tables)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Country, "country", "", "shard key")
	return cmd
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetadataOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "columns <catalog> <schema> <table>...",
		Short: "Describe the columns of one or more tables",
		Long: `Describe the columns of one or more tables.

Tables are described concurrently. A table that cannot be described is
reported without failing the others.`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(opts, cmd, func(svc *catalog.Service, f *OutputFormatter) error {
				refs := make([]catalog.TableRef, 0, len(args)-2)
				for _, table := range args[2:] {
					refs = append(refs, catalog.TableRef{Catalog: args[0], Schema: args[1], TableName: table})
				}
				return outputColumns(f, svc.DescribeAll(commandContext(cmd), refs, opts.Country))
			})
		},
	}
	cmd.Flags().StringVar(&opts.Country, "country", "", "shard key")
	return cmd
}

// runMetadata builds the metadata service and runs fn against it.
func runMetadata(opts *MetadataOptions, cmd *cobra.Command, fn func(*catalog.Service, *OutputFormatter) error) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	client, err := newTrinoClient(cfg, logger, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Using Trino at %s", cfg.TrinoURL())

	svc := newCatalogService(cfg, client, querysql.NewResolver(cfg.PatternConfig()), logger)
	if err := fn(svc, formatter); err != nil {
		return formatter.Fail(err)
	}
	return nil
}

func outputList(f *OutputFormatter, names []string) error {
	if f.Format == "json" {
		return f.Success(names)
	}
	printList(f, names)
	return nil
}

func printList(f *OutputFormatter, names []string) {
	for _, n := range names {
		fmt.Fprintln(f.Writer, n)
	}
}

// outputColumns outputs DescribeAll results. Any failed table makes the
// command exit with ExitFailure after everything has been printed.
func outputColumns(f *OutputFormatter, results []catalog.TableColumns) error {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	if f.Format == "json" {
		if err := f.Success(results); err != nil {
			return err
		}
	} else {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(f.Writer)
			}
			name := r.Table.Catalog + "." + r.Table.Schema + "." + r.Table.TableName
			if r.Error != "" {
				fmt.Fprintf(f.Writer, "✗ %s\n  %s\n", name, r.Error)
				continue
			}
			fmt.Fprintf(f.Writer, "%s\n", name)
			rows := make([][]string, 0, len(r.Columns))
			for _, c := range r.Columns {
				rows = append(rows, []string{c.Name, c.Type, c.Comment})
			}
			if err := renderTable(f.Writer, []string{"Column", "Type", "Comment"}, rows); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d table(s) could not be described", failed, len(results)))
	}
	return nil
}
