package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/vizq/internal/filters"
	"github.com/roach88/vizq/internal/harness"
	"github.com/roach88/vizq/internal/ir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	State StateFlags
	Lazy  bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <dashboard>",
		Short: "Run the dashboard queries and print the combined result",
		Long: `Load a dashboard into an in-memory store, apply the filter state given
by the flags, run every query and print the combined rows, keyed results,
summary and multi-value filter options.

Exits with code 1 when a query fails to execute.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	addStateFlags(cmd, &opts.State)
	cmd.Flags().BoolVar(&opts.Lazy, "lazy", false, "override the dashboard combining mode")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	extra := []harness.Option{harness.WithEngineOptions(opts.State.engineOptions()...)}
	if cmd.Flags().Changed("lazy") {
		extra = append(extra, harness.WithLazy(opts.Lazy))
	}

	d, p, err := openPipeline(ctx, path, opts.RootOptions, extra...)
	if err != nil {
		return failWith(formatter, err)
	}
	defer p.Close()

	st, err := p.State(ctx, opts.State.spec(cmd, d))
	if err != nil {
		return failWith(formatter, err)
	}
	out, err := p.Run(ctx, st)
	if err != nil {
		return failWith(formatter, err)
	}
	formatter.VerboseLog("Ran %d statement(s), lazy=%t", len(out.SQL), p.Lazy())

	if formatter.JSON() {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else if err := printOutput(formatter, out); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if len(out.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d query(ies) failed", ErrCodeExecution, len(out.Errors)))
	}
	return nil
}

func printOutput(f *OutputFormatter, out *harness.Output) error {
	if out.NoData {
		f.Printf("No data: no query targets a table\n")
		return nil
	}

	f.Printf("SQL:\n")
	for _, s := range out.SQL {
		f.Printf("  %s\n", s)
	}

	if out.Keyed != nil {
		f.Printf("\nKeyed (%d):\n", len(out.Keyed))
		for _, key := range ir.SortedKeys(out.Keyed) {
			line, err := ir.MarshalCanonical(out.Keyed[key])
			if err != nil {
				return err
			}
			f.Printf("  %s: %s\n", key, line)
		}
	} else {
		f.Printf("\nRows (%d):\n", len(out.Rows))
		if err := printRows(f, out.Rows); err != nil {
			return err
		}
	}

	if len(out.Summary) > 0 {
		f.Printf("\nSummary:\n")
		if err := printRows(f, out.Summary); err != nil {
			return err
		}
	}

	if len(out.Options) > 0 {
		values := lo.Map(out.Options, func(o filters.Option, _ int) string {
			return fmt.Sprintf("%s=%v", o.Field, o.Value)
		})
		f.Printf("\nOptions:\n")
		for i, v := range values {
			f.Printf("  %d. %s\n", i, v)
		}
	}

	if len(out.Errors) > 0 {
		f.Printf("\nErrors:\n")
		for _, e := range out.Errors {
			f.Printf("  ✗ %s\n", e)
		}
	}
	return nil
}

func printRows(f *OutputFormatter, rows []map[string]any) error {
	for _, row := range rows {
		line, err := ir.MarshalCanonical(row)
		if err != nil {
			return err
		}
		f.Printf("  %s\n", line)
	}
	return nil
}
