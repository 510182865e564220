// Package queryir defines the rule tree that widgets use to describe a WHERE
// condition.
//
// A tree is a Group whose Rules are Conditions: either a leaf Rule
// (field, operator, value) or a nested Group. Condition is a sealed interface
// using the marker method pattern, so backend compilers can switch over it
// exhaustively.
//
// TREE SHAPE:
//
//	Group{Combinator: "and", Rules: [
//	    Rule{Field: "revenue", Operator: "greater", Value: 50},
//	    Group{Combinator: "or", Rules: [
//	        Rule{Field: "region", Operator: "equal", Value: "north"},
//	        Rule{Field: "region", Operator: "equal", Value: "south"},
//	    ]},
//	]}
//
// OPERATORS:
//
// Operators form a closed set (see OperatorKind). Each has a definition with
// its SQL template, value separator, LIKE pattern, input count and the value
// kinds it applies to. Names outside the set resolve to OperatorUnknown, which
// compilers skip.
//
// DECODING:
//
// Trees arrive as JSON or YAML. A node carrying a "rules" key decodes as a
// Group, anything else as a Rule.
//
// This package depends on nothing else in the module, so ir and the compilers
// can both import it.
package queryir
