package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/vizq/internal/harness"
	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	State  StateFlags
	Output string // output file path
}

// CompiledQuery is the SQL generated for one dashboard query.
type CompiledQuery struct {
	Index    int    `json:"index"`
	Table    string `json:"table,omitempty"`
	Key      string `json:"key,omitempty"`
	Runnable bool   `json:"runnable"`
	SQL      string `json:"sql"`
	Args     []any  `json:"args,omitempty"`
}

// CompilationResult holds the SQL of every query of a dashboard.
type CompilationResult struct {
	Dashboard string          `json:"dashboard"`
	Statement string          `json:"statement"`
	Queries   []CompiledQuery `json:"queries"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <dashboard>",
		Short: "Show the SQL generated for each dashboard query",
		Long: `Load a dashboard, apply the filter state given by the flags and print
the SQL statement (and bound arguments) of every query without running it.

The dashboard may be a directory of CUE files or a single .cue, .json or
.yaml file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addStateFlags(cmd, &opts.State)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the result as canonical JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	d, p, err := openPipeline(ctx, path, opts.RootOptions, harness.WithEngineOptions(opts.State.engineOptions()...))
	if err != nil {
		return failWith(formatter, err)
	}
	defer p.Close()

	formatter.VerboseLog("Loaded %d datasource(s) and %d query(ies) from %s",
		len(d.Datasources)+len(d.Sources), len(d.Queries), path)

	st, err := p.State(ctx, opts.State.spec(cmd, d))
	if err != nil {
		return failWith(formatter, err)
	}
	queries, err := p.Build(ctx, st)
	if err != nil {
		return failWith(formatter, err)
	}

	mode, _ := querysql.ParseStatement(opts.State.Stmt)
	result := CompilationResult{Dashboard: path, Statement: mode.String(), Queries: []CompiledQuery{}}
	for i, q := range queries {
		cq := CompiledQuery{Index: i, Table: d.Queries[i].Table, Key: q.Key, Runnable: q.Runnable()}
		if cq.Runnable {
			text, args, err := q.SQL()
			if err != nil {
				return failWith(formatter, fmt.Errorf("query %d: %w", i, err))
			}
			cq.SQL, cq.Args = text, args
		}
		result.Queries = append(result.Queries, cq)
	}

	if opts.Output != "" {
		if err := writeResultToFile(opts.Output, result); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", opts.Output, err), nil)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	formatter.Printf("✓ Compiled %d query(ies) from %s (statement: %s)\n", len(result.Queries), path, result.Statement)
	for _, q := range result.Queries {
		label := q.Table
		if q.Key != "" {
			label = q.Key + " (" + q.Table + ")"
		}
		formatter.Printf("\n[%d] %s\n", q.Index, label)
		if !q.Runnable {
			formatter.Printf("  (no table, skipped)\n")
			continue
		}
		formatter.Printf("  %s\n", q.SQL)
		if len(q.Args) > 0 {
			formatter.Printf("  args: %v\n", q.Args)
		}
	}
	return nil
}

func writeResultToFile(path string, v any) error {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
