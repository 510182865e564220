package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/roach88/vizq/internal/compiler"
	"github.com/roach88/vizq/internal/filters"
	"github.com/roach88/vizq/internal/source"
	"github.com/roach88/vizq/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory store. Filter ids come from a
// sequence generator and the range clock is pinned to testutil.Epoch, so the
// output is reproducible. Sources fetch files relative to the dashboard.
//
// Execution flow:
//  1. Load the dashboard and open a pipeline over it
//  2. Build the filter state from the dashboard defaults and the scenario
//  3. Resolve multi-value selections against the current options
//  4. Run the pipeline and evaluate assertions
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	d, err := compiler.Load(s.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	clock := testutil.NewFixedClock(testutil.Epoch)
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithFetcher(source.FileFetcher{Dir: filepath.Dir(s.Dashboard)}),
		WithFilterOptions(
			filters.WithIDGenerator(testutil.NewSequenceGenerator()),
			filters.WithNow(clock.Now),
		),
	}
	if s.Lazy != nil {
		base = append(base, WithLazy(*s.Lazy))
	}

	p, err := Open(ctx, d, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	st, err := p.State(ctx, s.State)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter state: %w", err)
	}

	out, err := p.Run(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to run pipeline: %w", err)
	}

	result := NewResult(out)
	for _, msg := range EvaluateAssertions(ctx, out, p.Store(), s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
