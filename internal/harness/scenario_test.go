package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/filters"
)

func TestLoadScenarioResolvesDashboard(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/associated-eager.yaml")
	require.NoError(t, err)

	assert.Equal(t, "associated-eager", s.Name)
	assert.Equal(t, filepath.Join("testdata", "dashboards", "sales.yaml"), s.Dashboard)
	require.NotNil(t, s.Lazy)
	assert.False(t, *s.Lazy)
	assert.Equal(t, []filters.AssociatedFilter{
		{Field: "revenue", Fn: "less", Value: 50},
		{Field: "missing", Fn: "equal", Value: 1},
	}, s.State.Associated)
	assert.False(t, s.Golden)
}

func TestLoadScenarioRange(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/all-time.yaml")
	require.NoError(t, err)
	require.NotNil(t, s.State.Range)
	assert.Equal(t, RangeSpec{Field: "day", Days: -1}, *s.State.Range)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioMissingDashboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: x
description: x
dashboard: nowhere.yaml
assertions: [{type: no_data}]
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard not found")
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: x\ndashboard: d\nassertion: []\n", "failed to parse YAML"},
		{"missing name", "description: x\ndashboard: d\ngolden: true\n", "name is required"},
		{"missing description", "name: x\ndashboard: d\ngolden: true\n", "description is required"},
		{"missing dashboard", "name: x\ndescription: x\ngolden: true\n", "dashboard is required"},
		{"no assertions", "name: x\ndescription: x\ndashboard: d\n", "assertions list is required"},
		{"assertion without type", "name: x\ndescription: x\ndashboard: d\nassertions: [{count: 1}]\n", "type is required"},
		{"unknown assertion", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: magic}]\n", `unknown assertion type "magic"`},
		{"sql without text", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: sql_contains}]\n", "text is required"},
		{"negative count", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: row_count, count: -1}]\n", "count must be non-negative"},
		{"rows without expect", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: rows_contain}]\n", "expect is required"},
		{"order without values", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: rows_order, field: a}]\n", "field and values are required"},
		{"keyed without key", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: keyed}]\n", "key is required"},
		{"state without table", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: final_state, expect: {a: 1}}]\n", "table is required"},
		{"state without expect", "name: x\ndescription: x\ndashboard: d\nassertions: [{type: final_state, table: t}]\n", "expect is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenarioGoldenOnly(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\ndescription: x\ndashboard: d\ngolden: true\n"))
	require.NoError(t, err)
	assert.True(t, s.Golden)
	assert.Empty(t, s.Assertions)
}
