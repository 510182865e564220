package queryir

import (
	"fmt"
)

// ValidationResult collects the problems found in a rule tree.
//
// Errors are problems a compiler rejects (bad combinators, missing values).
// Warnings are problems a compiler tolerates: unknown operators are skipped
// and operator/type mismatches still render.
type ValidationResult struct {
	// Valid is true when Errors is empty.
	Valid bool

	Errors []error

	Warnings []string
}

// Validate checks a tree without compiling it.
//
// Validate is a pure function with no side effects.
func Validate(root *Group) ValidationResult {
	v := &validator{}
	if root == nil {
		return ValidationResult{Valid: true}
	}
	v.validateGroup(root, "root")
	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	errors   []error
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateGroup(g *Group, path string) {
	if _, err := g.Normalized(); err != nil {
		v.errors = append(v.errors, fmt.Errorf("%s: %w", path, err))
	}
	for i, c := range g.Rules {
		childPath := fmt.Sprintf("%s.rules[%d]", path, i)
		switch node := c.(type) {
		case Rule:
			v.validateRule(node, childPath)
		case *Group:
			v.validateGroup(node, childPath)
		default:
			v.errors = append(v.errors, fmt.Errorf("%s: %w", childPath,
				NewMalformedError("unsupported condition type %T", c)))
		}
	}
}

func (v *validator) validateRule(r Rule, path string) {
	if r.Field == "" {
		v.errors = append(v.errors, fmt.Errorf("%s: %w", path,
			NewMalformedError("rule has no field")))
	}

	def, ok := r.Kind().Def()
	if !ok {
		v.addWarning("%s: unknown operator %q is skipped", path, r.Operator)
		return
	}

	if got := len(r.Values()); !def.Multiple && got < def.NbInputs {
		v.errors = append(v.errors, fmt.Errorf("%s: %w", path,
			NewMissingValueError(r, def.NbInputs, got)))
	}
}

// CheckApplies reports rules whose operator does not apply to the declared
// type of their field. fieldTypes maps field names to declared types
// ("string", "number", "date", "boolean"); fields missing from the map are
// not checked.
func CheckApplies(root *Group, fieldTypes map[string]string) []string {
	var out []string
	_ = root.Walk(func(_ *Group, r Rule) error {
		typ, known := fieldTypes[r.Field]
		if !known {
			return nil
		}
		def, ok := r.Kind().Def()
		if !ok {
			return nil
		}
		kind := ApplyKindFor(typ)
		if !def.Applies(kind) {
			out = append(out, fmt.Sprintf("operator %s does not apply to %s field %q", def.Name, kind, r.Field))
		}
		return nil
	})
	return out
}
