package queryir

import "github.com/samber/lo"

// OperatorKind enumerates the supported rule operators.
type OperatorKind int

const (
	OperatorUnknown OperatorKind = iota
	OpEqual
	OpNotEqual
	OpIn
	OpNotIn
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpBetween
	OpNotBetween
	OpBeginsWith
	OpNotBeginsWith
	OpContains
	OpNotContains
	OpEndsWith
	OpNotEndsWith
	OpIsEmpty
	OpIsNotEmpty
	OpIsNull
	OpIsNotNull
)

// ApplyKind is a value kind an operator can be applied to.
type ApplyKind string

const (
	ApplyString   ApplyKind = "string"
	ApplyNumber   ApplyKind = "number"
	ApplyDatetime ApplyKind = "datetime"
	ApplyBoolean  ApplyKind = "boolean"
)

// OperatorDef describes how an operator renders.
//
// SQL holds a single '?' placeholder that is replaced by the rendered value
// list. Sep joins multiple values; Mod is a LIKE pattern where {0} stands
// for the value.
type OperatorDef struct {
	Name     string
	SQL      string
	Sep      string
	Mod      string
	NbInputs int
	Multiple bool
	ApplyTo  []ApplyKind
}

var (
	applyAll      = []ApplyKind{ApplyString, ApplyNumber, ApplyDatetime, ApplyBoolean}
	applyScalar   = []ApplyKind{ApplyString, ApplyNumber, ApplyDatetime}
	applyOrdered  = []ApplyKind{ApplyNumber, ApplyDatetime}
	applyTextOnly = []ApplyKind{ApplyString}
)

var operatorDefs = map[OperatorKind]OperatorDef{
	OpEqual:          {Name: "equal", SQL: "= ?", NbInputs: 1, ApplyTo: applyAll},
	OpNotEqual:       {Name: "not_equal", SQL: "!= ?", NbInputs: 1, ApplyTo: applyAll},
	OpIn:             {Name: "in", SQL: "IN(?)", Sep: ", ", NbInputs: 1, Multiple: true, ApplyTo: applyScalar},
	OpNotIn:          {Name: "not_in", SQL: "NOT IN(?)", Sep: ", ", NbInputs: 1, Multiple: true, ApplyTo: applyScalar},
	OpLess:           {Name: "less", SQL: "< ?", NbInputs: 1, ApplyTo: applyOrdered},
	OpLessOrEqual:    {Name: "less_or_equal", SQL: "<= ?", NbInputs: 1, ApplyTo: applyOrdered},
	OpGreater:        {Name: "greater", SQL: "> ?", NbInputs: 1, ApplyTo: applyOrdered},
	OpGreaterOrEqual: {Name: "greater_or_equal", SQL: ">= ?", NbInputs: 1, ApplyTo: applyOrdered},
	OpBetween:        {Name: "between", SQL: "BETWEEN ?", Sep: " AND ", NbInputs: 2, ApplyTo: applyOrdered},
	OpNotBetween:     {Name: "not_between", SQL: "NOT BETWEEN ?", Sep: " AND ", NbInputs: 2, ApplyTo: applyOrdered},
	OpBeginsWith:     {Name: "begins_with", SQL: "LIKE(?)", Mod: "{0}%", NbInputs: 1, ApplyTo: applyTextOnly},
	OpNotBeginsWith:  {Name: "not_begins_with", SQL: "NOT LIKE(?)", Mod: "{0}%", NbInputs: 1, ApplyTo: applyTextOnly},
	OpContains:       {Name: "contains", SQL: "LIKE(?)", Mod: "%{0}%", NbInputs: 1, ApplyTo: applyTextOnly},
	OpNotContains:    {Name: "not_contains", SQL: "NOT LIKE(?)", Mod: "%{0}%", NbInputs: 1, ApplyTo: applyTextOnly},
	OpEndsWith:       {Name: "ends_with", SQL: "LIKE(?)", Mod: "%{0}", NbInputs: 1, ApplyTo: applyTextOnly},
	OpNotEndsWith:    {Name: "not_ends_with", SQL: "NOT LIKE(?)", Mod: "%{0}", NbInputs: 1, ApplyTo: applyTextOnly},
	OpIsEmpty:        {Name: "is_empty", SQL: "= ''", ApplyTo: applyTextOnly},
	OpIsNotEmpty:     {Name: "is_not_empty", SQL: "!= ''", ApplyTo: applyTextOnly},
	OpIsNull:         {Name: "is_null", SQL: "IS NULL", ApplyTo: applyAll},
	OpIsNotNull:      {Name: "is_not_null", SQL: "IS NOT NULL", ApplyTo: applyAll},
}

var operatorsByName = func() map[string]OperatorKind {
	m := make(map[string]OperatorKind, len(operatorDefs))
	for k, def := range operatorDefs {
		m[def.Name] = k
	}
	return m
}()

// LookupOperator resolves an operator name. Unknown names yield
// OperatorUnknown.
func LookupOperator(name string) OperatorKind {
	return operatorsByName[name]
}

// Def returns the operator definition. ok is false for OperatorUnknown.
func (k OperatorKind) Def() (OperatorDef, bool) {
	def, ok := operatorDefs[k]
	return def, ok
}

// String returns the operator name, or "unknown".
func (k OperatorKind) String() string {
	if def, ok := operatorDefs[k]; ok {
		return def.Name
	}
	return "unknown"
}

// Applies reports whether the operator accepts values of the given kind.
func (d OperatorDef) Applies(kind ApplyKind) bool {
	return lo.Contains(d.ApplyTo, kind)
}

// ApplyKindFor maps a declared field type to the kind operators are checked
// against. Unknown types are treated as strings.
func ApplyKindFor(fieldType string) ApplyKind {
	switch fieldType {
	case "number", "integer", "double":
		return ApplyNumber
	case "date", "datetime":
		return ApplyDatetime
	case "boolean":
		return ApplyBoolean
	}
	return ApplyString
}

// Operators returns every known operator name.
func Operators() []string {
	out := make([]string, 0, len(operatorDefs))
	for k := OpEqual; k <= OpIsNotNull; k++ {
		out = append(out, operatorDefs[k].Name)
	}
	return out
}
