package ir

import (
	"strings"

	"github.com/roach88/vizq/internal/queryir"
)

// FnAll marks a field reference that projects a source column as-is.
const FnAll = "all"

// FieldRef is a field reference inside a QueryDescriptor.
//
// References with Fn == FnAll resolve to SourceFields typed from the table's
// columns; everything else resolves to a ComputedField over Raw.
type FieldRef struct {
	Field string `json:"field" yaml:"field"`
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Fn    string `json:"fn,omitempty" yaml:"fn,omitempty"`
	Raw   string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Order is an ORDER BY request. A nil Ascending means ascending.
type Order struct {
	Field     string `json:"field" yaml:"field"`
	Ascending *bool  `json:"ascending,omitempty" yaml:"ascending,omitempty"`
}

// IsAscending reports the sort direction, defaulting to ascending.
func (o Order) IsAscending() bool {
	return o.Ascending == nil || *o.Ascending
}

// QueryDescriptor is the declarative description of a data request.
//
// Semantics:
//
//	SELECT * FROM datasource_<Table> WHERE <Conditions> GROUP BY <GroupBy> ORDER BY <Order>
//
// When neither GroupBy nor Conditions carry anything, QueryString is run
// instead, with the first occurrence of Table replaced by the table name.
//
// TableName is only consulted by the multi-value filter option builder, which
// matches configured datasources by name.
type QueryDescriptor struct {
	Table       string         `json:"table" yaml:"table"`
	TableName   string         `json:"tableName,omitempty" yaml:"tableName,omitempty"`
	Fields      []FieldRef     `json:"fields,omitempty" yaml:"fields,omitempty"`
	Conditions  *queryir.Group `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	GroupBy     []string       `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	Order       *Order         `json:"order,omitempty" yaml:"order,omitempty"`
	Key         string         `json:"key,omitempty" yaml:"key,omitempty"`
	IsArray     bool           `json:"isArray,omitempty" yaml:"isArray,omitempty"`
	QueryString string         `json:"queryString,omitempty" yaml:"queryString,omitempty"`
}

// IsGrouped reports whether the descriptor requests a GROUP BY.
func (d QueryDescriptor) IsGrouped() bool {
	return len(d.GroupBy) > 0
}

// HasConditions reports whether the descriptor carries at least one rule or
// sub-group at its root.
func (d QueryDescriptor) HasConditions() bool {
	return d.Conditions != nil && len(d.Conditions.Rules) > 0
}

// TableMeta summarizes the columns of a table for presentation components.
type TableMeta struct {
	// TimeField is the first date-typed column, empty when there is none.
	TimeField string `json:"timeField"`

	// AllFields lists every column in declaration order.
	AllFields []string `json:"allFields"`

	// LabelFields lists grouping fields followed by string-typed columns.
	LabelFields []string `json:"labelFields"`
}

// Datasource describes a table and the payload that feeds it.
type Datasource struct {
	ID     string        `json:"id" yaml:"id"`
	Fields []SourceField `json:"fields" yaml:"fields"`

	// Data is the inline payload, any decoded JSON value.
	Data any `json:"raw_data,omitempty" yaml:"raw_data,omitempty"`

	ExtractData   string `json:"extractData,omitempty" yaml:"extractData,omitempty"`
	ExtractFields string `json:"extractFields,omitempty" yaml:"extractFields,omitempty"`
}

// TableNameFor derives the store table name for a datasource id.
// The rule is bit-exact: "datasource_" + id with every '-' replaced by '_'.
func TableNameFor(id string) string {
	return strings.ReplaceAll("datasource_"+id, "-", "_")
}
