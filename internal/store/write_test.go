package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/ir"
)

func TestAddDataAppendAndOverwrite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first := []any{map[string]any{"region": "north", "revenue": 10.0}}
	second := []any{
		map[string]any{"region": "south", "revenue": 20.0},
		map[string]any{"region": "east", "revenue": 30.0},
	}

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), first, false, ExtractOptions{}))
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), second, false, ExtractOptions{}))
	assert.Equal(t, 3, countRows(t, s, "sales"))

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), first, true, ExtractOptions{}))
	assert.Equal(t, 1, countRows(t, s, "sales"))
}

func TestDropOrCreateThenOverwriteKeepsOnlyNewRows(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "old"},
	}, false, ExtractOptions{}))

	require.NoError(t, s.DropOrCreateTable(ctx, "sales", salesFields()))
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "new", "revenue": 1.0},
		map[string]any{"region": "newer", "revenue": 2.0},
	}, true, ExtractOptions{}))

	rows, err := s.Query(ctx, "SELECT region, revenue FROM datasource_sales ORDER BY revenue")
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"region": "new", "revenue": 1.0},
		{"region": "newer", "revenue": 2.0},
	}, rows)
}

func TestAddDataNilPayload(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{map[string]any{"region": "north"}}, false, ExtractOptions{}))
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), nil, true, ExtractOptions{}))

	assert.Equal(t, 1, countRows(t, s, "sales"), "nil payload must not clear the table")
}

func TestAddDataExtractZipped(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	payload := map[string]any{
		"fields":   []any{"region", "revenue"},
		"raw_data": []any{[]any{"north", 10.0}, []any{"south", 20.0}},
	}
	opts := ExtractOptions{ExtractData: "raw_data", ExtractFields: "fields"}
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), payload, true, opts))

	rows, err := s.Query(ctx, "SELECT region, revenue FROM datasource_sales ORDER BY revenue")
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"region": "north", "revenue": 10.0},
		{"region": "south", "revenue": 20.0},
	}, rows)
}

func TestAddDataZippedUsesSchemaNames(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	payload := []any{[]any{"north", 10.0}, []any{"south", 20.0, "surplus"}}
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), payload, true, ExtractOptions{}))

	rows, err := s.Query(ctx, "SELECT region, revenue, day FROM datasource_sales ORDER BY revenue")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "north", rows[0]["region"])
	assert.Nil(t, rows[0]["day"])
}

func TestAddDataFailedExtractionFallsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	payload := []any{map[string]any{"region": "north"}}
	opts := ExtractOptions{ExtractData: "nowhere", ExtractFields: "neither"}
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), payload, true, opts))

	assert.Equal(t, 1, countRows(t, s, "sales"), "failed extraction writes the raw payload")
}

func TestAddDataSingleObject(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), map[string]any{"region": "north"}, false, ExtractOptions{}))
	assert.Equal(t, 1, countRows(t, s, "sales"))
}

func TestAddDataAddsUnknownColumns(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "north", "zeta": "z", "alpha": 1.0},
	}, false, ExtractOptions{}))

	cols, err := s.Columns(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, cols, 5)
	assert.Equal(t, Column{Name: "alpha", DeclType: "", Type: ir.TypeString}, cols[3])
	assert.Equal(t, "zeta", cols[4].Name)

	rows, err := s.Query(ctx, "SELECT alpha, zeta FROM datasource_sales")
	require.NoError(t, err)
	assert.Equal(t, []Row{{"alpha": 1.0, "zeta": "z"}}, rows)
}

func TestAddDataWithoutSchemaCreatesTableFromRows(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddData(ctx, "loose", nil, []any{
		map[string]any{"b": 2.0, "a": "x"},
	}, true, ExtractOptions{}))

	cols, err := s.Columns(ctx, "loose")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "a", cols[0].Name)
	assert.Equal(t, "b", cols[1].Name)
}

func TestAddDataNestedValuesAsJSON(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	fields := []ir.SourceField{ir.NewSourceField("meta", ir.TypeString, "")}
	require.NoError(t, s.AddData(ctx, "docs", fields, []any{
		map[string]any{"meta": map[string]any{"z": 1.0, "a": []any{true}}},
	}, false, ExtractOptions{}))

	rows, err := s.Query(ctx, "SELECT meta FROM datasource_docs")
	require.NoError(t, err)
	assert.Equal(t, []Row{{"meta": `{"a":[true],"z":1}`}}, rows)
}

func TestAddDataManyRows(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	payload := make([]any, 1000)
	for i := range payload {
		payload[i] = map[string]any{"region": fmt.Sprintf("r%d", i), "revenue": float64(i)}
	}
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), payload, true, ExtractOptions{}))
	assert.Equal(t, 1000, countRows(t, s, "sales"))
}

func TestInsertData(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	ds := ir.Datasource{ID: "sales", Fields: salesFields()}

	require.NoError(t, s.InsertData(ctx, ds, []any{
		map[string]any{"region": "a"},
		map[string]any{"region": "b"},
	}, ExtractOptions{}))
	assert.Equal(t, 2, countRows(t, s, "sales"))

	// Objects are wrapped in a list and always overwrite.
	require.NoError(t, s.InsertData(ctx, ds, map[string]any{"region": "c"}, ExtractOptions{}))
	assert.Equal(t, 1, countRows(t, s, "sales"))

	require.NoError(t, s.InsertData(ctx, ds, nil, ExtractOptions{}))
	assert.Equal(t, 1, countRows(t, s, "sales"))
}

func TestToRows(t *testing.T) {
	names := []string{"a", "b"}

	assert.Equal(t, []map[string]any{{"a": 1}}, toRows(map[string]any{"a": 1}, names))
	assert.Equal(t, []map[string]any{{"a": 1.0, "b": 2.0}, {"a": 3.0}},
		toRows([]any{[]any{1.0, 2.0}, []any{3.0}}, names))
	assert.Equal(t, []map[string]any{{"x": 1}}, toRows([]any{"skip", map[string]any{"x": 1}, 5.0}, names))
	assert.Nil(t, toRows("scalar", names))
}
