package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/vizq/internal/compiler"
	"github.com/roach88/vizq/internal/engine"
	"github.com/roach88/vizq/internal/filters"
	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/source"
	"github.com/roach88/vizq/internal/store"
)

// Pipeline is a dashboard loaded into its own store, ready to run queries
// under a filter state.
type Pipeline struct {
	dash    *compiler.Dashboard
	store   *store.Store
	factory *engine.Factory
	agg     *filters.Aggregator
	sources []*source.Source
	lazy    bool
	logger  *slog.Logger
}

type pipelineConfig struct {
	logger     *slog.Logger
	fetcher    source.Fetcher
	engineOpts []engine.Option
	filterOpts []filters.AggregatorOption
	lazy       *bool
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *pipelineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFetcher sets the fetcher used by the dashboard sources. Default:
// source.FileFetcher rooted at the working directory.
func WithFetcher(f source.Fetcher) Option {
	return func(c *pipelineConfig) { c.fetcher = f }
}

// WithEngineOptions passes options to the query factory.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *pipelineConfig) { c.engineOpts = append(c.engineOpts, opts...) }
}

// WithFilterOptions passes options to the filter aggregator.
func WithFilterOptions(opts ...filters.AggregatorOption) Option {
	return func(c *pipelineConfig) { c.filterOpts = append(c.filterOpts, opts...) }
}

// WithLazy overrides the combining mode of the dashboard.
func WithLazy(lazy bool) Option {
	return func(c *pipelineConfig) { c.lazy = &lazy }
}

// Open creates a store, loads every datasource and source of d into it and
// prepares the factory and aggregator. The caller must Close the pipeline.
func Open(ctx context.Context, d *compiler.Dashboard, opts ...Option) (*Pipeline, error) {
	cfg := pipelineConfig{logger: slog.Default(), fetcher: source.FileFetcher{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(store.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("open pipeline: %w", err)
	}

	p := &Pipeline{
		dash:   d,
		store:  st,
		lazy:   d.IsLazy(),
		logger: cfg.logger,
	}
	if cfg.lazy != nil {
		p.lazy = *cfg.lazy
	}

	if err := p.load(ctx, cfg); err != nil {
		p.Close()
		return nil, err
	}

	p.factory = engine.NewFactory(st, append([]engine.Option{engine.WithLogger(cfg.logger)}, cfg.engineOpts...)...)
	p.agg = filters.NewAggregator(d.Filters, st, append([]filters.AggregatorOption{filters.WithLogger(cfg.logger)}, cfg.filterOpts...)...)
	return p, nil
}

func (p *Pipeline) load(ctx context.Context, cfg pipelineConfig) error {
	for _, ds := range p.dash.Datasources {
		if err := p.store.DropOrCreateTable(ctx, ds.ID, ds.Fields); err != nil {
			return fmt.Errorf("load datasource %s: %w", ds.ID, err)
		}
		opts := store.ExtractOptions{ExtractData: ds.ExtractData, ExtractFields: ds.ExtractFields}
		if err := p.store.InsertData(ctx, ds, ds.Data, opts); err != nil {
			return fmt.Errorf("load datasource %s: %w", ds.ID, err)
		}
		p.logger.Debug("datasource loaded", "id", ds.ID)
	}

	for _, sc := range p.dash.Sources {
		src, err := source.New(p.store, cfg.fetcher, sc, source.WithLogger(cfg.logger))
		if err != nil {
			return fmt.Errorf("load source %s: %w", sc.ID, err)
		}
		p.sources = append(p.sources, src)
		if err := src.Update(ctx); err != nil {
			return fmt.Errorf("load source %s: %w", src.ID(), err)
		}
	}
	return nil
}

// Close stops source refreshes and drops the store.
func (p *Pipeline) Close() error {
	for _, src := range p.sources {
		src.Close()
	}
	return p.store.Close()
}

// Store returns the pipeline store.
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Lazy reports the combining mode in use.
func (p *Pipeline) Lazy() bool {
	return p.lazy
}

// DefaultState returns the state a widget starts with: the configured range
// filter over its default window, and nothing else.
func (p *Pipeline) DefaultState() filters.State {
	var st filters.State
	if rf := p.dash.RangeFilter; rf.Enabled && rf.Field != "" {
		st.Range = p.agg.RangeFor(rf.Field, rf.DefaultValue)
	}
	st.Associated = p.dash.AssociatedFilters
	return st
}

// State resolves spec on top of DefaultState. Multi-value indices are
// matched against the options under the resolved range; indices past the
// end of the option list are dropped.
func (p *Pipeline) State(ctx context.Context, spec StateSpec) (filters.State, error) {
	st := p.DefaultState()

	if spec.URL != "" {
		active, err := filters.ParseActive(spec.URL)
		if err != nil {
			return st, err
		}
		st.Active = active
	}
	if spec.Associated != nil {
		st.Associated = spec.Associated
	}
	if r := spec.Range; r != nil {
		if r.Start != nil || r.End != nil {
			st.Range = filters.RangeState{Field: r.Field, Days: r.Days, Start: r.Start, End: r.End}
		} else {
			st.Range = p.agg.RangeFor(r.Field, r.Days)
		}
	}
	if len(spec.Multi) > 0 {
		options, err := p.Options(ctx, st)
		if err != nil {
			return st, err
		}
		st.Multi = filters.SelectMulti(filters.VisibleSelection(spec.Multi, options), options)
	}
	return st, nil
}

// RangeFor builds a range state on the aggregator clock.
func (p *Pipeline) RangeFor(field string, days int) filters.RangeState {
	return p.agg.RangeFor(field, days)
}

// Descriptors applies st to every dashboard query.
func (p *Pipeline) Descriptors(ctx context.Context, st filters.State) ([]ir.QueryDescriptor, error) {
	out := make([]ir.QueryDescriptor, 0, len(p.dash.Queries))
	for i, q := range p.dash.Queries {
		filtered, err := p.agg.Apply(ctx, q, st)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out = append(out, filtered)
	}
	return out, nil
}

// Build filters and builds every dashboard query.
func (p *Pipeline) Build(ctx context.Context, st filters.State) ([]*engine.Query, error) {
	descs, err := p.Descriptors(ctx, st)
	if err != nil {
		return nil, err
	}
	return p.build(ctx, descs)
}

func (p *Pipeline) build(ctx context.Context, descs []ir.QueryDescriptor) ([]*engine.Query, error) {
	queries := make([]*engine.Query, 0, len(descs))
	for i, desc := range descs {
		q, err := p.factory.Build(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// Options lists the multi-value filter options under the range filter of st.
// A disabled multi-value filter yields nil.
func (p *Pipeline) Options(ctx context.Context, st filters.State) ([]filters.Option, error) {
	cfg := p.dash.MultiValueFilter
	if !cfg.Enabled {
		return nil, nil
	}

	descs := make([]ir.QueryDescriptor, 0, len(p.dash.Queries))
	for _, q := range p.dash.Queries {
		descs = append(descs, p.agg.RangeOnly(q, st))
	}
	queries, err := p.build(ctx, descs)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}

	var rows []map[string]any
	for _, q := range queries {
		rows = append(rows, q.Execute(ctx).RowsOrEmpty()...)
	}
	return filters.MultiValueOptions(cfg, p.dash.Queries, rows), nil
}

// Output is the outcome of one pipeline run.
type Output struct {
	SQL       []string         `json:"sql"`
	Rows      []map[string]any `json:"rows,omitempty"`
	Keyed     map[string]any   `json:"keyed,omitempty"`
	Summary   []map[string]any `json:"summary,omitempty"`
	Options   []filters.Option `json:"options,omitempty"`
	TableMeta ir.TableMeta     `json:"tableMeta"`
	Errors    []string         `json:"errors,omitempty"`
	NoData    bool             `json:"noData,omitempty"`
}

// Run builds the dashboard queries under st, combines them and computes the
// summary and multi-value options. Execution failures are collected in
// Output.Errors; only construction and store failures are returned.
func (p *Pipeline) Run(ctx context.Context, st filters.State) (*Output, error) {
	out := &Output{SQL: []string{}}

	options, err := p.Options(ctx, st)
	if err != nil {
		return nil, err
	}
	out.Options = options

	queries, err := p.Build(ctx, st)
	if err != nil {
		return nil, err
	}
	for _, q := range queries {
		if !q.Runnable() {
			continue
		}
		text, _, err := q.SQL()
		if err != nil {
			return nil, fmt.Errorf("render sql: %w", err)
		}
		out.SQL = append(out.SQL, text)
	}

	combined, err := engine.Combine(ctx, queries, p.lazy)
	if errors.Is(err, engine.ErrNoData) {
		out.NoData = true
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.TableMeta = combined.TableMeta

	switch {
	case combined.IsKeyed():
		out.Keyed = combined.Keyed
	case p.lazy:
		out.Rows = combined.Rows
	default:
		batch := combined.Execute(ctx)
		out.Rows = batch.Rows
		combined.Errors = append(combined.Errors, batch.Errors...)
	}
	for _, e := range combined.Errors {
		out.Errors = append(out.Errors, e.Error())
	}

	if p.dash.Summary != nil {
		batch := combined.Summary(ctx, *p.dash.Summary)
		out.Summary = batch.Rows
		for _, e := range batch.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
	}

	p.logger.Debug("pipeline run",
		"queries", len(out.SQL),
		"rows", len(out.Rows),
		"keyed", len(out.Keyed),
		"errors", len(out.Errors))
	return out, nil
}
