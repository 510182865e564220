package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/ir"
)

func TestTableName(t *testing.T) {
	s := createTestStore(t)
	assert.Equal(t, "datasource_37ce97a1_c902", s.TableName("37ce97a1-c902"))
}

func TestSQLTypeMapping(t *testing.T) {
	tests := []struct {
		field ir.FieldType
		sql   string
	}{
		{ir.TypeString, "TEXT"},
		{"", "TEXT"},
		{ir.TypeNumber, "REAL"},
		{ir.TypeDate, "DATE"},
		{ir.TypeBoolean, "BOOLEAN"},
		{"integer", "INTEGER"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.sql, SQLType(tt.field))
		})
	}

	for _, typ := range []ir.FieldType{ir.TypeString, ir.TypeNumber, ir.TypeDate, ir.TypeBoolean, "integer"} {
		assert.Equal(t, typ, FieldTypeOf(SQLType(typ)), "type %s must round-trip", typ)
	}
	assert.Equal(t, ir.TypeString, FieldTypeOf(""), "untyped columns are strings")
}

func TestCreateTableIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.CreateTable(ctx, "sales", salesFields()))
	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "north"},
	}, false, ExtractOptions{}))

	// Second create must neither fail nor reset the table.
	require.NoError(t, s.CreateTable(ctx, "sales", salesFields()))
	assert.Equal(t, 1, countRows(t, s, "sales"))

	cols, err := s.Columns(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "region", DeclType: "TEXT", Type: ir.TypeString},
		{Name: "revenue", DeclType: "REAL", Type: ir.TypeNumber},
		{Name: "day", DeclType: "DATE", Type: ir.TypeDate},
	}, cols)
}

func TestCreateTableDuplicateFields(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	fields := append(salesFields(), ir.NewSourceField("region", ir.TypeNumber, ""))
	require.NoError(t, s.CreateTable(ctx, "sales", fields))

	cols, err := s.Columns(ctx, "sales")
	require.NoError(t, err)
	assert.Len(t, cols, 3, "first declaration of a name wins")
}

func TestCreateTableWithoutFields(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.CreateTable(ctx, "empty", nil))
	exists, err := s.HasTable(ctx, "empty")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateTableQuotesIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	fields := []ir.SourceField{
		ir.NewSourceField("order", ir.TypeString, ""),
		ir.NewSourceField(`odd "name"`, ir.TypeNumber, ""),
	}
	require.NoError(t, s.CreateTable(ctx, "keywords", fields))

	cols, err := s.Columns(ctx, "keywords")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "order", cols[0].Name)
	assert.Equal(t, `odd "name"`, cols[1].Name)
}

func TestDropTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// Dropping a missing table is a no-op.
	require.NoError(t, s.DropTable(ctx, "nothing"))

	require.NoError(t, s.CreateTable(ctx, "sales", salesFields()))
	require.NoError(t, s.DropTable(ctx, "sales"))

	exists, err := s.HasTable(ctx, "sales")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDropOrCreateTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddData(ctx, "sales", salesFields(), []any{
		map[string]any{"region": "north"},
	}, false, ExtractOptions{}))

	newSchema := []ir.SourceField{ir.NewSourceField("id", ir.TypeNumber, "")}
	require.NoError(t, s.DropOrCreateTable(ctx, "sales", newSchema))

	assert.Equal(t, 0, countRows(t, s, "sales"))
	cols, err := s.Columns(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "id", DeclType: "REAL", Type: ir.TypeNumber}}, cols)
}

func TestColumnsMissingTable(t *testing.T) {
	s := createTestStore(t)
	cols, err := s.Columns(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}
