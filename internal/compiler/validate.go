package compiler

import (
	"fmt"

	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/queryir"
)

// Validation error codes (E100-E199)
const (
	// Datasource errors (E101-E109)
	ErrDatasourceIDEmpty   = "E101" // datasource id is required
	ErrDuplicateDatasource = "E102" // datasource id defined twice
	ErrFieldNameEmpty      = "E103" // source field without a name

	// Query errors (E110-E119)
	ErrUnknownTable      = "E110" // query table is not a defined datasource
	ErrInvalidConditions = "E111" // rule tree does not compile

	// Filter errors (E120-E129)
	ErrUnknownFilterSource = "E120" // filter catalog entry for an undefined datasource
	ErrFilterFieldEmpty    = "E121" // filter without a field
	ErrRangeFieldEmpty     = "E122" // enabled range filter without a field
)

// ValidationError represents a dashboard validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Report is the outcome of Validate.
type Report struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

// Valid reports whether no errors were found.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks a dashboard and returns every problem found.
//
// Warnings flag operators applied to fields of a type they are not declared
// for; such rules still compile.
func Validate(d *Dashboard) Report {
	r := Report{Errors: []ValidationError{}, Warnings: []string{}}

	known := map[string]bool{}
	for i, ds := range d.Datasources {
		path := fmt.Sprintf("datasources[%d]", i)
		switch {
		case ds.ID == "":
			r.add(path+".id", ErrDatasourceIDEmpty, "datasource id is required")
		case known[ds.ID]:
			r.add(path+".id", ErrDuplicateDatasource, fmt.Sprintf("datasource %q is defined twice", ds.ID))
		}
		known[ds.ID] = true

		for j, f := range ds.Fields {
			if f.FieldName == "" {
				r.add(fmt.Sprintf("%s.fields[%d].name", path, j), ErrFieldNameEmpty, "field name is required")
			}
		}
	}
	for i, s := range d.Sources {
		if s.ID == "" {
			continue
		}
		if known[s.ID] {
			r.add(fmt.Sprintf("sources[%d].id", i), ErrDuplicateDatasource, fmt.Sprintf("datasource %q is defined twice", s.ID))
		}
		known[s.ID] = true
	}

	for i, q := range d.Queries {
		r.validateQuery(d, fmt.Sprintf("queries[%d]", i), q, known)
	}

	for i, f := range d.Filters {
		path := fmt.Sprintf("filters[%d]", i)
		if !known[f.Datasource.ID] {
			r.add(path+".datasource.id", ErrUnknownFilterSource, fmt.Sprintf("unknown datasource %q", f.Datasource.ID))
		}
		if f.Field == "" {
			r.add(path+".field", ErrFilterFieldEmpty, "filter field is required")
		}
	}
	for i, f := range d.AssociatedFilters {
		if f.Field == "" {
			r.add(fmt.Sprintf("associatedFilters[%d].field", i), ErrFilterFieldEmpty, "filter field is required")
		}
	}
	if d.RangeFilter.Enabled && d.RangeFilter.Field == "" {
		r.add("rangeFilter.field", ErrRangeFieldEmpty, "enabled range filter needs a field")
	}

	return r
}

func (r *Report) validateQuery(d *Dashboard, path string, q ir.QueryDescriptor, known map[string]bool) {
	if q.Table == "" {
		return
	}
	if !known[q.Table] {
		r.add(path+".table", ErrUnknownTable, fmt.Sprintf("unknown datasource %q", q.Table))
	}
	if q.Conditions == nil {
		return
	}

	res := queryir.Validate(q.Conditions)
	for _, err := range res.Errors {
		r.add(path+".conditions", ErrInvalidConditions, err.Error())
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, path+": "+w)
	}
	for _, w := range queryir.CheckApplies(q.Conditions, d.FieldTypes(q.Table)) {
		r.Warnings = append(r.Warnings, path+": "+w)
	}
}

func (r *Report) add(field, code, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Code: code, Message: message})
}
