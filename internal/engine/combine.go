package engine

import (
	"context"
	"fmt"

	"github.com/imdario/mergo"
	"github.com/samber/lo"

	"github.com/roach88/vizq/internal/ir"
)

// Combined is the reduction of the queries feeding one widget.
//
// After a lazy Combine, Keyed is set when every query carried a key and Rows
// otherwise. After a non-lazy Combine neither is set until Execute runs.
type Combined struct {
	TableMeta    ir.TableMeta
	QueryStrings []string
	Datasource   ir.Fields

	Keyed map[string]any
	Rows  []map[string]any

	// Errors collects execution failures of a lazy combine.
	Errors []error

	queries []*Query
}

// Combine reduces queries. Non-runnable queries are ignored; when none is
// runnable Combine returns ErrNoData.
func Combine(ctx context.Context, queries []*Query, lazy bool) (*Combined, error) {
	runnable := lo.Filter(queries, func(q *Query, _ int) bool { return q.Runnable() })
	if len(runnable) == 0 {
		return nil, ErrNoData
	}

	c := &Combined{
		TableMeta:    ir.TableMeta{AllFields: []string{}, LabelFields: []string{}},
		QueryStrings: []string{},
		Datasource:   ir.Fields{},
		queries:      runnable,
	}
	// Non-empty slices of a later query replace earlier ones wholesale.
	for _, q := range runnable {
		if err := mergo.Merge(&c.TableMeta, q.TableMeta, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge table meta: %w", err)
		}
		c.QueryStrings = append(c.QueryStrings, q.QueryString)
		c.Datasource = append(c.Datasource, q.Datasource...)
	}

	if !lazy {
		return c, nil
	}

	allKeyed := lo.EveryBy(runnable, func(q *Query) bool { return q.Key != "" })
	if allKeyed {
		c.Keyed = make(map[string]any, len(runnable))
	} else {
		c.Rows = []map[string]any{}
	}
	for _, q := range runnable {
		res := q.Execute(ctx)
		if res.Err != nil {
			c.Errors = append(c.Errors, res.Err)
		}
		rows := res.RowsOrEmpty()
		if !allKeyed {
			c.Rows = append(c.Rows, rows...)
			continue
		}
		if len(rows) == 1 && !q.IsArray {
			c.Keyed[q.Key] = rows[0]
		} else {
			c.Keyed[q.Key] = rows
		}
	}
	return c, nil
}

// IsKeyed reports whether the lazy result is keyed by query key.
func (c *Combined) IsKeyed() bool {
	return c.Keyed != nil
}

// Batch is the outcome of running every query of a Combined. A failing
// query contributes no rows; the rows of the others are kept.
type Batch struct {
	Rows   []map[string]any
	Errors []error
}

// OK reports whether every query ran.
func (b Batch) OK() bool {
	return len(b.Errors) == 0
}

// Execute runs every query in order and concatenates the rows.
func (c *Combined) Execute(ctx context.Context) Batch {
	return c.concat(func(q *Query) Result { return q.Execute(ctx) })
}

// Summary runs the summary of every query and concatenates the rows.
func (c *Combined) Summary(ctx context.Context, cfg SummaryConfig) Batch {
	return c.concat(func(q *Query) Result { return q.Summary(ctx, cfg) })
}

func (c *Combined) concat(run func(*Query) Result) Batch {
	out := Batch{Rows: []map[string]any{}}
	for _, q := range c.queries {
		res := run(q)
		if res.Err != nil {
			out.Errors = append(out.Errors, res.Err)
		}
		out.Rows = append(out.Rows, res.RowsOrEmpty()...)
	}
	return out
}
