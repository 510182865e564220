package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/querysql"
	"github.com/roach88/vizq/internal/store"
)

// Factory builds queries against one store.
//
// A Factory is immutable after construction and safe to share.
type Factory struct {
	store     *store.Store
	logger    *slog.Logger
	mode      querysql.StatementMode
	prefix    string
	multiline bool
	dialect   querysql.Dialect
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithStatementMode selects literal or parameterized WHERE clauses. The
// prefix overrides the placeholder character for numbered and named modes.
//
// Default: literal statements with SQLite quoting.
func WithStatementMode(mode querysql.StatementMode, prefix string) Option {
	return func(f *Factory) {
		f.mode = mode
		f.prefix = prefix
	}
}

// WithMultiline separates WHERE clauses with newlines.
func WithMultiline(on bool) Option {
	return func(f *Factory) {
		f.multiline = on
	}
}

// NewFactory creates a factory over st.
func NewFactory(st *store.Store, opts ...Option) *Factory {
	f := &Factory{
		store:   st,
		logger:  slog.Default(),
		mode:    querysql.StatementNone,
		dialect: querysql.DialectSQLite,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build resolves desc into a Query.
//
// An empty Table yields a non-runnable Query and no error. Rule trees that
// cannot be compiled return the queryir.ConstructionError unchanged. Store
// failures while reading table metadata are returned wrapped.
func (f *Factory) Build(ctx context.Context, desc ir.QueryDescriptor) (*Query, error) {
	q := &Query{
		store:       f.store,
		logger:      f.logger,
		Key:         desc.Key,
		IsArray:     desc.IsArray,
		TableMeta:   ir.TableMeta{AllFields: []string{}, LabelFields: []string{}},
		Datasource:  ir.Fields{},
		QueryString: desc.QueryString,
	}
	if desc.Table == "" {
		return q, nil
	}
	q.runnable = true

	table := f.store.TableName(desc.Table)
	q.base = sq.Select().From(table)

	if desc.IsGrouped() || desc.HasConditions() {
		compiler := querysql.NewWhereCompiler(querysql.Options{
			Mode:      f.mode,
			Prefix:    f.prefix,
			Multiline: f.multiline,
			Dialect:   f.dialect,
			Logger:    f.logger,
		})
		where, err := compiler.Compile(desc.Conditions)
		if err != nil {
			return nil, err
		}
		if !where.IsEmpty() {
			q.base = q.base.Where(where.SQL, where.Args()...)
		}

		sel := q.base.Columns("*")
		if desc.IsGrouped() {
			sel = sel.GroupBy(desc.GroupBy...)
		}
		if desc.Order != nil && desc.Order.Field != "" {
			sel = sel.OrderBy(orderClause(*desc.Order))
		}
		q.selection = &sel
	} else {
		q.QueryString = resolveQueryString(desc.QueryString, desc.Table, table)
	}

	meta, err := f.store.TableMeta(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", desc.Table, err)
	}
	q.TableMeta = meta

	fields, err := f.store.Datasource(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", desc.Table, err)
	}
	q.Datasource = fields

	return q, nil
}

// resolveQueryString replaces the first occurrence of the table id with the
// table name. An empty query string selects the whole table.
func resolveQueryString(query, id, table string) string {
	if strings.TrimSpace(query) == "" {
		return "SELECT * FROM " + table
	}
	return strings.Replace(query, id, table, 1)
}

func orderClause(o ir.Order) string {
	if o.IsAscending() {
		return o.Field + " ASC"
	}
	return o.Field + " DESC"
}
