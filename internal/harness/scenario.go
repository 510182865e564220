package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vizq/internal/filters"
)

// Scenario defines one end-to-end check of a dashboard.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dashboard is the path of the dashboard definition, relative to the
	// scenario file.
	Dashboard string `yaml:"dashboard"`

	// Lazy overrides the combining mode of the dashboard.
	Lazy *bool `yaml:"lazy,omitempty"`

	// State is the widget filter state the queries run under.
	State StateSpec `yaml:"state,omitempty"`

	// Assertions validate the output and the final store contents.
	Assertions []Assertion `yaml:"assertions"`

	// Golden compares the output snapshot against testdata/golden.
	Golden bool `yaml:"golden,omitempty"`
}

// StateSpec is the YAML form of a filters.State.
type StateSpec struct {
	// URL is the raw query string carrying active global filters.
	URL string `yaml:"url,omitempty"`

	// Associated filters passed down by a parent widget. When set they
	// replace the dashboard's own associated filters.
	Associated []filters.AssociatedFilter `yaml:"associated,omitempty"`

	// Range selects a range filter window.
	Range *RangeSpec `yaml:"range,omitempty"`

	// Multi holds the selected multi-value option indices.
	Multi []int `yaml:"multi,omitempty"`
}

// RangeSpec selects a range filter window. Days is resolved on the pinned
// clock; explicit Start and End win over Days.
type RangeSpec struct {
	Field string `yaml:"field"`
	Days  int    `yaml:"days,omitempty"`
	Start any    `yaml:"start,omitempty"`
	End   any    `yaml:"end,omitempty"`
}

// Assertion validates the pipeline output or the store.
type Assertion struct {
	// Type selects the check; see the Assert constants.
	Type string `yaml:"type"`

	// Query is the index of the SQL statement (sql_contains, sql_equals).
	Query int `yaml:"query,omitempty"`

	// Text is the expected SQL fragment or statement.
	Text string `yaml:"text,omitempty"`

	// Count is the expected number of rows, options or errors.
	Count int `yaml:"count,omitempty"`

	// Key names a keyed result (keyed).
	Key string `yaml:"key,omitempty"`

	// Field names the column read by rows_order.
	Field string `yaml:"field,omitempty"`

	// Values are the expected field values in order (rows_order, options).
	Values []any `yaml:"values,omitempty"`

	// Table is the datasource id queried by final_state.
	Table string `yaml:"table,omitempty"`

	// Where selects the row checked by final_state. All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected field values. Subset match: only the listed
	// fields are compared.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains = "sql_contains"
	AssertSQLEquals   = "sql_equals"
	AssertRowCount    = "row_count"
	AssertRowsContain = "rows_contain"
	AssertRowsOrder   = "rows_order"
	AssertKeyed       = "keyed"
	AssertSummary     = "summary"
	AssertOptions     = "options"
	AssertNoData      = "no_data"
	AssertErrorCount  = "error_count"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file and resolves its
// dashboard path. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if s.Dashboard != "" && !filepath.IsAbs(s.Dashboard) {
		s.Dashboard = filepath.Join(filepath.Dir(path), s.Dashboard)
	}
	if _, err := os.Stat(s.Dashboard); err != nil {
		return nil, fmt.Errorf("invalid scenario: dashboard not found: %s", s.Dashboard)
	}
	return s, nil
}

// ParseScenario decodes a scenario without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Dashboard == "" {
		return fmt.Errorf("dashboard is required")
	}
	if len(s.Assertions) == 0 && !s.Golden {
		return fmt.Errorf("assertions list is required unless golden is set")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSQLContains, AssertSQLEquals:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
		if a.Query < 0 {
			return fmt.Errorf("assertions[%d]: query must be non-negative", index)
		}
	case AssertRowCount, AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertRowsContain, AssertSummary:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertRowsOrder:
		if a.Field == "" || len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: field and values are required for rows_order", index)
		}
	case AssertKeyed:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for keyed", index)
		}
	case AssertOptions, AssertNoData:
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
