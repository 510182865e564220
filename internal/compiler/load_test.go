package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/filters"
	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/queryir"
)

// assertSampleDashboard checks the dashboard shared by all testdata formats.
func assertSampleDashboard(t *testing.T, d *Dashboard) {
	t.Helper()

	require.Len(t, d.Datasources, 1)
	ds := d.Datasources[0]
	assert.Equal(t, "sales", ds.ID)
	assert.Equal(t, []ir.SourceField{
		{FieldName: "region", Type: ir.TypeString, Alias: "region"},
		{FieldName: "revenue", Type: ir.TypeNumber, Alias: "revenue"},
	}, ds.Fields)
	assert.Equal(t, []any{
		map[string]any{"region": "north", "revenue": 10.0},
		map[string]any{"region": "south", "revenue": 100.0},
	}, ds.Data)

	require.Len(t, d.Queries, 1)
	q := d.Queries[0]
	assert.Equal(t, "sales", q.Table)
	assert.Equal(t, "Sales", q.TableName)
	assert.Equal(t, []ir.FieldRef{{Field: "region", Alias: "Region", Fn: ir.FnAll}}, q.Fields)
	require.NotNil(t, q.Conditions)
	assert.Equal(t, queryir.NewGroup("g-1", queryir.CombinatorAnd,
		queryir.Rule{ID: "r-1", Field: "revenue", Operator: "greater", Value: 50.0}), q.Conditions)

	assert.Equal(t, []filters.CatalogEntry{{
		Hash:       "h1",
		Datasource: filters.DatasourceRef{ID: "sales"},
		Field:      "region",
		Has:        "=",
		Values:     []any{"north"},
	}}, d.Filters)

	assert.False(t, d.IsLazy())
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"json", "testdata/dashboard.json"},
		{"yaml", "testdata/dashboard.yaml"},
		{"cue file", "testdata/cue/dashboard.cue"},
		{"cue dir", "testdata/cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Load(tt.path)
			require.NoError(t, err)
			assertSampleDashboard(t, d)
		})
	}
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load("testdata/nope.json")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "path", ce.Field)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoadDirWithoutCUEFiles(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files found")
}

func TestLoadIncompleteCUE(t *testing.T) {
	_, err := Load("testdata/broken")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{"queries": [{"table": "t", "conditions": {"rules": [null]}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MALFORMED_DESCRIPTOR")
}

func TestParseYAMLEmpty(t *testing.T) {
	d, err := ParseYAML([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, d.Queries)
	assert.True(t, d.IsLazy())
}

func TestParseSources(t *testing.T) {
	d, err := ParseJSON([]byte(`{
		"sources": [{
			"id": "live",
			"url": "live.json",
			"datasource": [
				{"name": "region", "type": "string"},
				{"raw": "COUNT(*)", "alias": "n"}
			]
		}]
	}`))
	require.NoError(t, err)

	require.Len(t, d.Sources, 1)
	src := d.Sources[0]
	assert.Equal(t, "live", src.ID)
	assert.Equal(t, "live.json", src.URL)
	assert.Equal(t, ir.Fields{
		ir.NewSourceField("region", ir.TypeString, ""),
		ir.NewComputedField("COUNT(*)", "", "n"),
	}, src.Fields)
	assert.Equal(t, []string{"live"}, d.TableIDs())
	assert.Equal(t, map[string]string{"region": "string"}, d.FieldTypes("live"))
}
