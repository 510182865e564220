package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/queryir"
	"github.com/roach88/vizq/internal/querysql"
	"github.com/roach88/vizq/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func salesFields() []ir.SourceField {
	return []ir.SourceField{
		ir.NewSourceField("region", ir.TypeString, ""),
		ir.NewSourceField("revenue", ir.TypeNumber, ""),
	}
}

// seedSales loads three rows into the "sales" table.
func seedSales(t *testing.T, s *store.Store) {
	t.Helper()
	rows := []any{
		map[string]any{"region": "north", "revenue": 10.0},
		map[string]any{"region": "north", "revenue": 30.0},
		map[string]any{"region": "south", "revenue": 100.0},
	}
	require.NoError(t, s.AddData(context.Background(), "sales", salesFields(), rows, true, store.ExtractOptions{}))
}

func newTestFactory(s *store.Store, opts ...Option) *Factory {
	return NewFactory(s, append([]Option{WithLogger(discardLogger())}, opts...)...)
}

func greaterThan(field string, v any) *queryir.Group {
	return queryir.NewGroup("g-1", queryir.CombinatorAnd,
		queryir.Rule{ID: "r-1", Field: field, Operator: "greater", Value: v})
}

func TestBuildEmptyTableIsNotRunnable(t *testing.T) {
	f := newTestFactory(setupTestStore(t))

	q, err := f.Build(context.Background(), ir.QueryDescriptor{})
	require.NoError(t, err)
	assert.False(t, q.Runnable())

	res := q.Execute(context.Background())
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Rows)
}

func TestBuildWithConditions(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "north", "revenue": 10.0},
		map[string]any{"region": "south", "revenue": 100.0},
	}, true, store.ExtractOptions{}))

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table:      "sales",
		Conditions: greaterThan("revenue", 50),
	})
	require.NoError(t, err)

	text, args, err := q.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM datasource_sales WHERE revenue > 50", text)
	assert.Empty(t, args)

	res := q.Execute(ctx)
	require.NoError(t, res.Err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "south", res.Rows[0]["region"])
	assert.Equal(t, 100.0, res.Rows[0]["revenue"])
}

func TestBuildGroupedAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedSales(t, s)

	desc := false
	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table:   "sales",
		GroupBy: []string{"region"},
		Order:   &ir.Order{Field: "region", Ascending: &desc},
	})
	require.NoError(t, err)

	text, _, err := q.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM datasource_sales GROUP BY region ORDER BY region DESC", text)

	res := q.Execute(ctx)
	require.NoError(t, res.Err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "south", res.Rows[0]["region"])
	assert.Equal(t, "north", res.Rows[1]["region"])
}

func TestBuildQueryStringReplacesFirstTableID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedSales(t, s)

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table:       "sales",
		QueryString: "SELECT region FROM sales WHERE region = 'sales'",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT region FROM datasource_sales WHERE region = 'sales'", q.QueryString)

	res := q.Execute(ctx)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Rows)
}

func TestBuildEmptyQueryStringSelectsTable(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedSales(t, s)

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{Table: "sales"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM datasource_sales", q.QueryString)
	assert.Len(t, q.Execute(ctx).Rows, 3)
}

func TestBuildHyphenatedTableID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.AddData(ctx, "a-b", salesFields(), []any{
		map[string]any{"region": "x", "revenue": 1.0},
	}, true, store.ExtractOptions{}))

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{Table: "a-b", QueryString: "SELECT * FROM a-b"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM datasource_a_b", q.QueryString)
	assert.Len(t, q.Execute(ctx).Rows, 1)
}

func TestBuildResolvesMetaAndDatasource(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedSales(t, s)

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table: "sales",
		Fields: []ir.FieldRef{
			{Field: "revenue", Fn: ir.FnAll},
			{Raw: "SUM(revenue)"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "revenue"}, q.TableMeta.AllFields)
	assert.Equal(t, []string{"region"}, q.TableMeta.LabelFields)
	require.Len(t, q.Datasource, 2)
	assert.Equal(t, ir.NewSourceField("revenue", ir.TypeNumber, ""), q.Datasource[0])
	assert.Equal(t, ir.NewComputedField("SUM(revenue)", "", ""), q.Datasource[1])
}

func TestBuildSurfacesConstructionError(t *testing.T) {
	f := newTestFactory(setupTestStore(t))

	_, err := f.Build(context.Background(), ir.QueryDescriptor{
		Table: "sales",
		Conditions: queryir.NewGroup("g-1", queryir.CombinatorAnd,
			queryir.Rule{ID: "r-1", Field: "revenue", Operator: "between", Value: []any{10.0}}),
	})
	require.Error(t, err)
	assert.True(t, queryir.HasCode(err, queryir.ErrCodeMissingValue))
}

func TestBuildSkipsUnknownOperator(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedSales(t, s)

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table: "sales",
		Conditions: queryir.NewGroup("g-1", queryir.CombinatorAnd,
			queryir.Rule{ID: "r-1", Field: "revenue", Operator: "approximately", Value: 1}),
	})
	require.NoError(t, err)

	text, _, err := q.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM datasource_sales", text)
	assert.Len(t, q.Execute(ctx).Rows, 3)
}

func TestExecuteFailureIsReportedInResult(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table:       "missing",
		QueryString: "SELECT * FROM missing",
	})
	require.NoError(t, err)

	res := q.Execute(ctx)
	require.Error(t, res.Err)
	assert.True(t, IsExecutionError(res.Err))
	assert.ErrorIs(t, res.Err, ErrExecution)
	assert.False(t, res.OK())
	assert.NotNil(t, res.RowsOrEmpty())
	assert.Empty(t, res.RowsOrEmpty())

	var ee *ExecutionError
	require.ErrorAs(t, res.Err, &ee)
	assert.Equal(t, "SELECT * FROM datasource_missing", ee.SQL)
}

func TestStatementModes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		mode     querysql.StatementMode
		wantSQL  string
		wantArgs int
	}{
		{"question mark", querysql.StatementQuestionMark, "SELECT * FROM datasource_sales WHERE revenue > ?", 1},
		{"numbered", querysql.StatementNumbered, "SELECT * FROM datasource_sales WHERE revenue > $1", 1},
		{"named", querysql.StatementNamed, "SELECT * FROM datasource_sales WHERE revenue > :revenue_1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			seedSales(t, s)

			q, err := newTestFactory(s, WithStatementMode(tt.mode, "")).Build(ctx, ir.QueryDescriptor{
				Table:      "sales",
				Conditions: greaterThan("revenue", 50),
			})
			require.NoError(t, err)

			text, args, err := q.SQL()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, text)
			assert.Len(t, args, tt.wantArgs)

			res := q.Execute(ctx)
			require.NoError(t, res.Err)
			require.Len(t, res.Rows, 1)
			assert.Equal(t, "south", res.Rows[0]["region"])
		})
	}
}

func TestStringLiteralQuotingForSQLite(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "o'hara", "revenue": 1.0},
	}, true, store.ExtractOptions{}))

	q, err := newTestFactory(s).Build(ctx, ir.QueryDescriptor{
		Table: "sales",
		Conditions: queryir.NewGroup("g-1", queryir.CombinatorAnd,
			queryir.Rule{ID: "r-1", Field: "region", Operator: "equal", Value: "o'hara"}),
	})
	require.NoError(t, err)

	res := q.Execute(ctx)
	require.NoError(t, res.Err)
	assert.Len(t, res.Rows, 1)
}
