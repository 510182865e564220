package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vizq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dashboard>",
		Short: "Check a dashboard definition without loading data",
		Long: `Check datasource ids, query tables, condition trees and filter
configuration of a dashboard.

Operators applied to fields of a type they are not declared for are
reported as warnings. Exits with code 1 when errors are found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	d, err := LoadDashboard(path)
	if err != nil {
		return failWith(formatter, err)
	}

	report := compiler.Validate(d)
	result := ValidationResult{Valid: report.Valid(), Errors: report.Errors, Warnings: report.Warnings}
	formatter.VerboseLog("Checked %d datasource(s), %d query(ies), %d filter(s)",
		len(d.Datasources), len(d.Queries), len(d.Filters))

	if !result.Valid {
		msg := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
		if formatter.JSON() {
			return formatter.Fail(ExitFailure, ErrCodeInvalid, msg, result)
		}
		for _, e := range result.Errors {
			formatter.Printf("✗ %s\n", e.Error())
		}
		printWarnings(formatter, result.Warnings)
		return formatter.Fail(ExitFailure, ErrCodeInvalid, msg, nil)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	printWarnings(formatter, result.Warnings)
	formatter.Printf("✓ Dashboard valid: %s\n", path)
	return nil
}

func printWarnings(f *OutputFormatter, warnings []string) {
	for _, w := range warnings {
		f.Printf("⚠ %s\n", w)
	}
}
