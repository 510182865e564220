package filters

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/queryir"
)

// symbolOperators maps catalog comparison symbols to operator names.
var symbolOperators = map[string]string{
	"=":    "equal",
	">":    "greater",
	"<":    "less",
	">=":   "greater_or_equal",
	"<=":   "less_or_equal",
	"!=":   "not_equal",
	"LIKE": "contains",
}

// OperatorForSymbol returns the operator name for a catalog symbol. Unknown
// symbols are returned unchanged so catalogs may name operators directly.
func OperatorForSymbol(symbol string) string {
	if op, ok := symbolOperators[symbol]; ok {
		return op
	}
	return symbol
}

// DatasourceRef names the table a catalog entry applies to.
type DatasourceRef struct {
	ID string `json:"id" yaml:"id"`
}

// CatalogEntry is a configured global filter.
type CatalogEntry struct {
	Hash       string        `json:"hash" yaml:"hash"`
	Datasource DatasourceRef `json:"datasource" yaml:"datasource"`
	Field      string        `json:"field" yaml:"field"`
	Has        string        `json:"has" yaml:"has"`
	Values     []any         `json:"values,omitempty" yaml:"values,omitempty"`
}

// AssociatedFilter is a host-supplied condition.
type AssociatedFilter struct {
	Field string `json:"field" yaml:"field"`
	Fn    string `json:"fn" yaml:"fn"`
	Value any    `json:"value" yaml:"value"`
}

// State is the filter state of one widget.
type State struct {
	Active     []ActiveFilter
	Associated []AssociatedFilter
	Range      RangeState
	Multi      MultiValueState
}

// MetaSource resolves table metadata. *store.Store implements it.
type MetaSource interface {
	TableMeta(ctx context.Context, desc ir.QueryDescriptor) (ir.TableMeta, error)
}

// Aggregator applies filters to descriptors.
type Aggregator struct {
	catalog []CatalogEntry
	meta    MetaSource
	ids     IDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithIDGenerator sets the id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) AggregatorOption {
	return func(a *Aggregator) {
		if g != nil {
			a.ids = g
		}
	}
}

// WithNow sets the clock used by RangeFor. Default: time.Now.
func WithNow(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an aggregator over a filter catalog. meta may be nil
// when no associated filters are ever applied.
func NewAggregator(catalog []CatalogEntry, meta MetaSource, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		catalog: catalog,
		meta:    meta,
		ids:     UUIDv7Generator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) group(rules ...queryir.Condition) *queryir.Group {
	return queryir.NewGroup("g-"+a.ids.Generate(), queryir.CombinatorAnd, rules...)
}

func (a *Aggregator) rule(field, operator string, value any) queryir.Rule {
	return queryir.Rule{ID: "r-" + a.ids.Generate(), Field: field, Operator: operator, Value: value}
}

// Apply returns a copy of desc whose conditions combine every applicable
// filter with the descriptor's own conditions.
func (a *Aggregator) Apply(ctx context.Context, desc ir.QueryDescriptor, st State) (ir.QueryDescriptor, error) {
	root := a.group()

	a.applyGlobal(desc, st.Active, root)
	if err := a.applyAssociated(ctx, desc, st.Associated, root); err != nil {
		return desc, err
	}
	a.applyRange(st.Range, root)
	a.applyMulti(st.Multi, root)

	if desc.Conditions != nil {
		root.Add(desc.Conditions)
	}

	desc.Conditions = root
	return desc, nil
}

// RangeOnly returns a copy of desc filtered by the range filter alone. Its
// own conditions are replaced. The result feeds multi-value options, so
// option lists follow the selected range.
func (a *Aggregator) RangeOnly(desc ir.QueryDescriptor, st State) ir.QueryDescriptor {
	root := a.group()
	a.applyRange(st.Range, root)
	desc.Conditions = root
	return desc
}

// GlobalFilters returns the catalog entries activated by the URL state for
// the descriptor's table. Entries keep their configured values and are
// dropped when they have none; the URL values stay on the ActiveFilter.
func (a *Aggregator) GlobalFilters(desc ir.QueryDescriptor, active []ActiveFilter) []CatalogEntry {
	var out []CatalogEntry
	for _, af := range active {
		entry, ok := lo.Find(a.catalog, func(e CatalogEntry) bool { return e.Hash == af.Hash })
		if !ok {
			a.logger.Debug("no catalog entry for active filter", "hash", af.Hash)
			continue
		}
		if entry.Datasource.ID != desc.Table {
			continue
		}
		if len(entry.Values) == 0 {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (a *Aggregator) applyGlobal(desc ir.QueryDescriptor, active []ActiveFilter, root *queryir.Group) {
	for _, entry := range a.GlobalFilters(desc, active) {
		root.Add(a.rule(entry.Field, OperatorForSymbol(entry.Has), entry.Values))
	}
}

func (a *Aggregator) applyAssociated(ctx context.Context, desc ir.QueryDescriptor, filters []AssociatedFilter, root *queryir.Group) error {
	if len(filters) == 0 {
		return nil
	}
	if a.meta == nil {
		return fmt.Errorf("associated filters: no table metadata source")
	}
	meta, err := a.meta.TableMeta(ctx, desc)
	if err != nil {
		return fmt.Errorf("associated filters: %w", err)
	}
	for _, f := range filters {
		if !slices.Contains(meta.AllFields, f.Field) {
			a.logger.Debug("associated filter field not in table", "field", f.Field, "table", desc.Table)
			continue
		}
		root.Add(a.rule(f.Field, f.Fn, f.Value))
	}
	return nil
}

func (a *Aggregator) applyRange(r RangeState, root *queryir.Group) {
	if r.Field == "" {
		return
	}
	root.Add(
		a.rule(r.Field, "greater_or_equal", r.Start),
		a.rule(r.Field, "less_or_equal", r.End),
	)
}

func (a *Aggregator) applyMulti(m MultiValueState, root *queryir.Group) {
	fields := lo.Keys(m.Fields)
	slices.Sort(fields)
	for _, field := range fields {
		values := m.Fields[field]
		if len(values) == 0 {
			continue
		}
		root.Add(a.rule(field, "in", values))
	}
}

// RangeFor builds the range state covering the last days days on the
// aggregator's clock.
func (a *Aggregator) RangeFor(field string, days int) RangeState {
	start, end := RangeWindow(a.now(), days)
	return RangeState{Field: field, Days: days, Start: start, End: end}
}
