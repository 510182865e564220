package engine

import (
	"context"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/store"
)

// Query is a built, runnable request.
type Query struct {
	Key         string
	IsArray     bool
	TableMeta   ir.TableMeta
	Datasource  ir.Fields
	QueryString string

	store    *store.Store
	logger   *slog.Logger
	runnable bool

	// base is the FROM/WHERE statement without columns; Summary adds its own.
	base sq.SelectBuilder

	// selection is set when the descriptor was grouped or conditioned.
	selection *sq.SelectBuilder
}

// Runnable reports whether the query targets a table.
func (q *Query) Runnable() bool {
	return q != nil && q.runnable
}

// SQL returns the statement Execute runs and its arguments.
func (q *Query) SQL() (string, []any, error) {
	if q.selection == nil {
		return q.QueryString, nil, nil
	}
	return q.selection.ToSql()
}

// Execute runs the query. A non-runnable query returns no rows and no error.
func (q *Query) Execute(ctx context.Context) Result {
	if !q.Runnable() {
		return Result{Rows: []map[string]any{}}
	}
	text, args, err := q.SQL()
	if err != nil {
		q.logger.Debug("query build failed", "error", err)
		return failed(text, err)
	}
	return q.run(ctx, text, args)
}

func (q *Query) run(ctx context.Context, text string, args []any) Result {
	rows, err := q.store.Query(ctx, text, args...)
	if err != nil {
		q.logger.Debug("query execution failed", "sql", text, "error", err)
		return failed(text, err)
	}
	return Result{Rows: rows}
}
