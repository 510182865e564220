package compiler

import (
	"github.com/roach88/vizq/internal/engine"
	"github.com/roach88/vizq/internal/filters"
	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/source"
)

// Dashboard is a widget definition: the datasources it loads, the queries it
// runs and the filters that narrow them.
type Dashboard struct {
	Datasources []ir.Datasource      `json:"datasources,omitempty"`
	Sources     []source.Config      `json:"sources,omitempty"`
	Queries     []ir.QueryDescriptor `json:"queries,omitempty"`

	Filters           []filters.CatalogEntry     `json:"filters,omitempty"`
	AssociatedFilters []filters.AssociatedFilter `json:"associatedFilters,omitempty"`
	MultiValueFilter  filters.MultiValueConfig   `json:"multiValueFilter"`
	RangeFilter       filters.RangeConfig        `json:"rangeFilter"`

	Summary *engine.SummaryConfig `json:"summary,omitempty"`

	// Lazy selects lazy combining. Nil means lazy.
	Lazy *bool `json:"lazy,omitempty"`
}

// IsLazy reports the combining mode, defaulting to lazy.
func (d *Dashboard) IsLazy() bool {
	return d.Lazy == nil || *d.Lazy
}

// Datasource returns the datasource with the given id.
func (d *Dashboard) Datasource(id string) (ir.Datasource, bool) {
	for _, ds := range d.Datasources {
		if ds.ID == id {
			return ds, true
		}
	}
	return ir.Datasource{}, false
}

// TableIDs lists the ids of every table the dashboard defines, datasources
// first.
func (d *Dashboard) TableIDs() []string {
	ids := make([]string, 0, len(d.Datasources)+len(d.Sources))
	for _, ds := range d.Datasources {
		ids = append(ids, ds.ID)
	}
	for _, s := range d.Sources {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// FieldTypes maps the source fields of table id to their types.
func (d *Dashboard) FieldTypes(id string) map[string]string {
	types := map[string]string{}
	if ds, ok := d.Datasource(id); ok {
		for _, f := range ds.Fields {
			types[f.FieldName] = string(f.Type)
		}
	}
	for _, s := range d.Sources {
		if s.ID != id {
			continue
		}
		for _, f := range s.Fields.SourceFields() {
			types[f.FieldName] = string(f.Type)
		}
	}
	return types
}
