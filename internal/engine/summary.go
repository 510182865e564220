package engine

import (
	"context"
)

// Aggregate column aliases of a summary row. Minumum is spelled the way
// existing consumers read it.
const (
	AliasAverage = "Average"
	AliasMaximum = "Maximum"
	AliasMinimum = "Minumum"
	AliasTotal   = "Total"
	AliasCurrent = "Current"
)

// SummaryConfig selects the aggregates computed over Field.
type SummaryConfig struct {
	Avg     bool     `json:"avg,omitempty" yaml:"avg,omitempty"`
	Max     bool     `json:"max,omitempty" yaml:"max,omitempty"`
	Min     bool     `json:"min,omitempty" yaml:"min,omitempty"`
	Sum     bool     `json:"sum,omitempty" yaml:"sum,omitempty"`
	Current bool     `json:"current,omitempty" yaml:"current,omitempty"`
	Groups  []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Field   string   `json:"field,omitempty" yaml:"field,omitempty"`
}

// Summary aggregates Field over the query's filtered rows, ignoring its
// grouping and ordering. Each non-empty group adds LAST(g) AS g and a
// GROUP BY g. An empty Field, or a non-runnable query, yields no rows.
func (q *Query) Summary(ctx context.Context, cfg SummaryConfig) Result {
	if !q.Runnable() || cfg.Field == "" {
		return Result{Rows: []map[string]any{}}
	}

	sel := q.base
	for _, g := range cfg.Groups {
		if g == "" {
			continue
		}
		sel = sel.Column("LAST(" + g + ") AS " + g).GroupBy(g)
	}

	field := cfg.Field
	if cfg.Avg {
		sel = sel.Column("AVG(" + field + ") AS " + AliasAverage)
	}
	if cfg.Max {
		sel = sel.Column("MAX(" + field + ") AS " + AliasMaximum)
	}
	if cfg.Min {
		sel = sel.Column("MIN(" + field + ") AS " + AliasMinimum)
	}
	if cfg.Sum {
		sel = sel.Column("SUM(" + field + ") AS " + AliasTotal)
	}
	if cfg.Current {
		sel = sel.Column("LAST(" + field + ") AS " + AliasCurrent)
	}

	text, args, err := sel.ToSql()
	if err != nil {
		q.logger.Debug("summary build failed", "field", field, "error", err)
		return failed(text, err)
	}
	return q.run(ctx, text, args)
}
