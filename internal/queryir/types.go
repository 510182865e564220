package queryir

import (
	"strings"
)

// Condition is a node of a rule tree.
//
// This is a sealed interface - only Rule and *Group implement it.
type Condition interface {
	// NodeID returns the node identifier, possibly empty.
	NodeID() string

	conditionNode()
}

// Combinator joins the children of a Group.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// ValueType is the optional value type of a Rule, driving coercion.
type ValueType string

const (
	ValueInteger ValueType = "integer"
	ValueDouble  ValueType = "double"
	ValueBoolean ValueType = "boolean"
	ValueString  ValueType = "string"
)

// Coerces reports whether values of this type are converted before rendering.
func (t ValueType) Coerces() bool {
	return t == ValueInteger || t == ValueDouble || t == ValueBoolean
}

// Rule is a leaf condition: Field <Operator> Value.
//
// Value is a scalar or a list; operators taking no input ignore it.
type Rule struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Field    string    `json:"field" yaml:"field"`
	Operator string    `json:"operator" yaml:"operator"`
	Value    any       `json:"value,omitempty" yaml:"value,omitempty"`
	Type     ValueType `json:"type,omitempty" yaml:"type,omitempty"`
}

func (Rule) conditionNode() {}

// NodeID implements Condition.
func (r Rule) NodeID() string { return r.ID }

// Kind resolves the operator name.
func (r Rule) Kind() OperatorKind { return LookupOperator(r.Operator) }

// Values returns the rule value as a list. A scalar, nil included, yields a
// one-element list.
func (r Rule) Values() []any {
	switch v := r.Value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out
	default:
		return []any{v}
	}
}

// Group is a boolean combination of conditions.
type Group struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	Combinator Combinator  `json:"combinator,omitempty" yaml:"combinator,omitempty"`
	Rules      []Condition `json:"rules" yaml:"rules"`
}

func (*Group) conditionNode() {}

// NodeID implements Condition.
func (g *Group) NodeID() string { return g.ID }

// NewGroup creates a group over the given conditions.
func NewGroup(id string, combinator Combinator, rules ...Condition) *Group {
	if rules == nil {
		rules = []Condition{}
	}
	return &Group{ID: id, Combinator: combinator, Rules: rules}
}

// Add appends conditions to the group.
func (g *Group) Add(rules ...Condition) {
	g.Rules = append(g.Rules, rules...)
}

// Normalized returns the combinator in canonical (lower-case) form. An empty
// combinator means "and".
func (g *Group) Normalized() (Combinator, error) {
	switch strings.ToLower(string(g.Combinator)) {
	case "", "and":
		return CombinatorAnd, nil
	case "or":
		return CombinatorOr, nil
	}
	return "", NewInvalidCombinatorError(g.ID, string(g.Combinator))
}

// IsEmpty reports whether the group has no rules, ignoring nested groups
// that are themselves empty.
func (g *Group) IsEmpty() bool {
	if g == nil {
		return true
	}
	for _, c := range g.Rules {
		switch node := c.(type) {
		case Rule:
			return false
		case *Group:
			if !node.IsEmpty() {
				return false
			}
		}
	}
	return true
}

// Walk visits every rule in the tree depth-first, in declaration order.
// Walking stops at the first non-nil error.
func (g *Group) Walk(fn func(parent *Group, r Rule) error) error {
	if g == nil {
		return nil
	}
	for _, c := range g.Rules {
		switch node := c.(type) {
		case Rule:
			if err := fn(g, node); err != nil {
				return err
			}
		case *Group:
			if err := node.Walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}
