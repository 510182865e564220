package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/vizq/internal/compiler"
	"github.com/roach88/vizq/internal/engine"
	"github.com/roach88/vizq/internal/harness"
	"github.com/roach88/vizq/internal/queryir"
	"github.com/roach88/vizq/internal/querysql"
	"github.com/roach88/vizq/internal/source"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeParseFailed  = "E002" // JSON or YAML decode error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load or evaluation failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeUnsupported  = "E006" // Unsupported dashboard file type
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodePipeline     = "E008" // Store or source failure
	ErrCodeConstruction = "E009" // Query construction failed
	ErrCodeExecution    = "E010" // Query execution failed
	ErrCodeInvalid      = "E011" // Dashboard validation failed
)

// LoadError is a dashboard load failure with its CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDashboard loads a dashboard directory or file and classifies failures.
func LoadDashboard(path string) (*compiler.Dashboard, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dashboard not found: %s", path)}
	}
	d, err := compiler.Load(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return d, nil
}

func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapCompileErrorToCode(compileErr),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapCompileErrorToCode maps a compiler error to an error code.
func MapCompileErrorToCode(err *compiler.CompileError) string {
	switch err.Field {
	case "cue":
		return ErrCodeLoadFailed
	case "json", "yaml":
		return ErrCodeParseFailed
	case "path":
		switch {
		case strings.HasPrefix(err.Message, "no CUE files"):
			return ErrCodeNoFiles
		case strings.HasPrefix(err.Message, "unsupported file type"):
			return ErrCodeUnsupported
		}
		return ErrCodeNotFound
	default:
		return ErrCodeGeneric
	}
}

// StateFlags are the filter and rendering flags shared by compile and query.
type StateFlags struct {
	QueryString string
	Range       int
	Multi       []int
	Stmt        string
	Multiline   bool
}

func addStateFlags(cmd *cobra.Command, f *StateFlags) {
	cmd.Flags().StringVar(&f.QueryString, "query-string", "", `active filters as a URL query string, e.g. "?f-h1=north"`)
	cmd.Flags().IntVar(&f.Range, "range", 0, "range filter window in days (-1 for all time)")
	cmd.Flags().IntSliceVar(&f.Multi, "multi", nil, "multi-value filter option indices")
	cmd.Flags().StringVar(&f.Stmt, "stmt", "", "statement mode: none, true, question_mark, numbered[(p)], named[(p)]")
	cmd.Flags().BoolVar(&f.Multiline, "multiline", false, "render nested condition groups on separate lines")
}

func (f *StateFlags) engineOptions() []engine.Option {
	mode, prefix := querysql.ParseStatement(f.Stmt)
	return []engine.Option{
		engine.WithStatementMode(mode, prefix),
		engine.WithMultiline(f.Multiline),
	}
}

// spec turns the flags into a filter state spec. The range flag only
// applies when set on the command line.
func (f *StateFlags) spec(cmd *cobra.Command, d *compiler.Dashboard) harness.StateSpec {
	spec := harness.StateSpec{URL: f.QueryString, Multi: f.Multi}
	if cmd.Flags().Changed("range") {
		spec.Range = &harness.RangeSpec{Field: d.RangeFilter.Field, Days: f.Range}
	}
	return spec
}

// openPipeline loads the dashboard at path into a fresh pipeline. Sources
// read files relative to the dashboard.
func openPipeline(ctx context.Context, path string, opts *RootOptions, extra ...harness.Option) (*compiler.Dashboard, *harness.Pipeline, error) {
	d, err := LoadDashboard(path)
	if err != nil {
		return nil, nil, err
	}

	dir := path
	if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	base := []harness.Option{
		harness.WithLogger(opts.Logger()),
		harness.WithFetcher(source.FileFetcher{Dir: dir}),
	}
	p, err := harness.Open(ctx, d, append(base, extra...)...)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodePipeline, Message: err.Error()}
	}
	return d, p, nil
}

// failWith reports err through the formatter. Load failures are command
// errors; construction failures are reported with their rule details.
func failWith(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		var details any
		if loadErr.Pos.IsValid() {
			details = map[string]any{
				"file":   loadErr.Pos.Filename(),
				"line":   loadErr.Pos.Line(),
				"column": loadErr.Pos.Column(),
			}
		}
		return f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, details)
	}

	var ce *queryir.ConstructionError
	if errors.As(err, &ce) {
		return f.Fail(ExitFailure, ErrCodeConstruction, err.Error(), ce)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
