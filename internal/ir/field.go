package ir

import (
	"encoding/json"
	"fmt"
)

// FieldType is the declared type of a source column.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeDate    FieldType = "date"
	TypeBoolean FieldType = "boolean"
)

// Field is a sealed interface over the two field shapes.
//
// A SourceField is a literal column of a table; a ComputedField is a derived
// value whose Raw expression is handed to the query engine (or to the
// extraction evaluator). Only types in this package implement Field.
type Field interface {
	// Name returns the stable output key of the field.
	Name() string

	// String returns the canonical JSON form, used for structural equality.
	String() string

	fieldNode()
}

// SourceField represents a literal column in a table.
type SourceField struct {
	FieldName string    `json:"name"`
	Type      FieldType `json:"type"`
	Alias     string    `json:"alias"`
}

func (SourceField) fieldNode() {}

// NewSourceField creates a SourceField. An empty type defaults to string and
// an empty alias defaults to the name.
func NewSourceField(name string, typ FieldType, alias string) SourceField {
	if typ == "" {
		typ = TypeString
	}
	if alias == "" {
		alias = name
	}
	return SourceField{FieldName: name, Type: typ, Alias: alias}
}

// Name returns the alias, falling back to the column name.
func (f SourceField) Name() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.FieldName
}

func (f SourceField) String() string {
	return canonicalString(map[string]any{
		"name":  f.FieldName,
		"type":  string(f.Type),
		"alias": f.Alias,
	})
}

// ComputedField represents a derived value.
//
// Field is always empty for computed fields; it is kept so the JSON shape
// matches the descriptor field reference shape.
type ComputedField struct {
	Field string `json:"field"`
	Raw   string `json:"raw"`
	Fn    string `json:"fn,omitempty"`
	Alias string `json:"alias,omitempty"`
}

func (ComputedField) fieldNode() {}

// NewComputedField creates a ComputedField from an expression.
func NewComputedField(raw, fn, alias string) ComputedField {
	return ComputedField{Raw: raw, Fn: fn, Alias: alias}
}

// Name returns the alias, falling back to the raw expression.
func (f ComputedField) Name() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Raw
}

func (f ComputedField) String() string {
	obj := map[string]any{
		"field": f.Field,
		"raw":   f.Raw,
		"fn":    nil,
		"alias": nil,
	}
	if f.Fn != "" {
		obj["fn"] = f.Fn
	}
	if f.Alias != "" {
		obj["alias"] = f.Alias
	}
	return canonicalString(obj)
}

// canonicalString renders a field object. Field objects only hold strings and
// nulls, so marshaling cannot fail.
func canonicalString(obj map[string]any) string {
	b, err := MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("%v", obj)
	}
	return string(b)
}

// ParseField decodes either field shape. Objects carrying a non-empty "raw"
// key decode as ComputedField, everything else as SourceField.
func ParseField(data []byte) (Field, error) {
	var shape struct {
		Raw string `json:"raw"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("parse field: %w", err)
	}

	if shape.Raw != "" {
		var cf ComputedField
		if err := json.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse computed field: %w", err)
		}
		return NewComputedField(cf.Raw, cf.Fn, cf.Alias), nil
	}

	var sf SourceField
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse source field: %w", err)
	}
	if sf.FieldName == "" {
		return nil, fmt.Errorf("parse field: missing name")
	}
	return NewSourceField(sf.FieldName, sf.Type, sf.Alias), nil
}

// Fields is a list of fields that decodes from a JSON array of either shape.
type Fields []Field

// UnmarshalJSON implements json.Unmarshaler.
func (fs *Fields) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Fields, 0, len(raws))
	for i, raw := range raws {
		f, err := ParseField(raw)
		if err != nil {
			return fmt.Errorf("fields[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	*fs = out
	return nil
}

// SourceFields returns the source fields in order.
func (fs Fields) SourceFields() []SourceField {
	var out []SourceField
	for _, f := range fs {
		if sf, ok := f.(SourceField); ok {
			out = append(out, sf)
		}
	}
	return out
}

// ComputedFields returns the computed fields in order.
func (fs Fields) ComputedFields() []ComputedField {
	var out []ComputedField
	for _, f := range fs {
		if cf, ok := f.(ComputedField); ok {
			out = append(out, cf)
		}
	}
	return out
}
