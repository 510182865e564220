package filters

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/roach88/vizq/internal/ir"
)

// FieldToFilter names a field offered by a multi-value filter.
type FieldToFilter struct {
	Datasource string `json:"datasource" yaml:"datasource"`
	FieldName  string `json:"fieldName" yaml:"fieldName"`
	FieldAlias string `json:"fieldAlias,omitempty" yaml:"fieldAlias,omitempty"`
}

// MultiValueConfig configures the multi-value filter of a widget.
type MultiValueConfig struct {
	Enabled        bool            `json:"enabled" yaml:"enabled"`
	FieldsToFilter []FieldToFilter `json:"fieldsToFilter,omitempty" yaml:"fieldsToFilter,omitempty"`
}

// Option is one selectable value of a multi-value filter.
type Option struct {
	Alias string `json:"alias"`
	Field string `json:"field"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Entry is one leaf of a flattened value.
type Entry struct {
	Key   string
	Value any
}

// Flatten walks v and returns its leaves keyed by dotted path. Arrays are
// visited by index and objects by sorted key. Empty arrays and objects have
// no leaves; nil is a leaf.
func Flatten(v any) []Entry {
	var out []Entry
	flatten("", v, &out)
	return out
}

func flatten(prefix string, v any, out *[]Entry) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch val := v.(type) {
	case map[string]any:
		keys := lo.Keys(val)
		slices.Sort(keys)
		for _, k := range keys {
			flatten(join(k), val[k], out)
		}
	case []any:
		for i, elem := range val {
			flatten(join(strconv.Itoa(i)), elem, out)
		}
	case []map[string]any:
		for i, elem := range val {
			flatten(join(strconv.Itoa(i)), elem, out)
		}
	default:
		*out = append(*out, Entry{Key: prefix, Value: v})
	}
}

type optionField struct {
	name  string
	alias string
}

// MultiValueOptions lists the options of a multi-value filter from rows, the
// concatenated results of the widget's range-filtered queries.
//
// Each configured field is resolved through the query whose TableName
// matches its datasource (case-insensitively); a query field whose alias
// equals the configured name supplies the column name and alias. Leaves of
// rows become options when their last path segment matches a resolved field.
// Values are de-duplicated across all fields, first occurrence wins.
//
// A disabled filter, or one without fields, yields nil.
func MultiValueOptions(cfg MultiValueConfig, queries []ir.QueryDescriptor, rows []map[string]any) []Option {
	if !cfg.Enabled || len(cfg.FieldsToFilter) == 0 {
		return nil
	}

	var fields []optionField
	for _, f := range cfg.FieldsToFilter {
		if f.Datasource == "" {
			continue
		}
		q, ok := lo.Find(queries, func(q ir.QueryDescriptor) bool {
			return q.TableName != "" && f.FieldName != "" && strings.EqualFold(q.TableName, f.Datasource)
		})
		if !ok {
			continue
		}
		of := optionField{name: f.FieldName}
		if ref, ok := lo.Find(q.Fields, func(r ir.FieldRef) bool { return r.Alias == f.FieldName }); ok {
			if ref.Field != "" {
				of.name = ref.Field
			}
			of.alias = ref.Alias
		}
		fields = append(fields, of)
	}

	options := []Option{}
	seen := map[string]bool{}
	for _, leaf := range Flatten(rows) {
		segments := strings.Split(leaf.Key, ".")
		name := segments[len(segments)-1]

		field, ok := lo.Find(fields, func(f optionField) bool {
			if f.alias != "" {
				return name == f.alias
			}
			return name == f.name
		})
		if !ok {
			continue
		}

		id := valueKey(leaf.Value)
		if seen[id] {
			continue
		}
		seen[id] = true

		alias := field.alias
		if alias == "" {
			alias = field.name
		}
		options = append(options, Option{Alias: alias, Field: field.name, Key: name, Value: leaf.Value})
	}
	return options
}

// valueKey identifies a leaf value for de-duplication. Values of different
// types never collide.
func valueKey(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}
