package querysql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/vizq/internal/queryir"
)

// Options configures a WhereCompiler.
type Options struct {
	// Mode selects literal or parameterized rendering.
	Mode StatementMode

	// Prefix overrides the placeholder prefix for the numbered and named
	// modes. Anything other than a single character selects the default.
	Prefix string

	// Multiline separates clauses with newlines instead of spaces.
	Multiline bool

	// Dialect selects literal string escaping.
	Dialect Dialect

	// Logger receives debug records for skipped rules. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// WhereCompiler turns rule trees into WHERE clauses. A compiler holds no
// per-compilation state and may be reused.
type WhereCompiler struct {
	opts   Options
	logger *slog.Logger
}

// NewWhereCompiler creates a compiler.
func NewWhereCompiler(opts Options) *WhereCompiler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WhereCompiler{opts: opts, logger: logger}
}

// Compile renders the tree. A nil root compiles to an empty clause.
func (c *WhereCompiler) Compile(root *queryir.Group) (*Where, error) {
	w := &Where{Mode: c.opts.Mode}
	if root == nil {
		return w, nil
	}

	b := newBinder(c.opts.Mode, c.opts.Prefix)
	text, err := c.compileGroup(root, b)
	if err != nil {
		return nil, err
	}
	w.SQL = text

	switch bound := b.(type) {
	case *questionMarkBinder:
		w.Params = bound.params
	case *numberedBinder:
		w.Params = bound.params
	case *namedBinder:
		w.Named = bound.params
	}
	return w, nil
}

func (c *WhereCompiler) newline() string {
	if c.opts.Multiline {
		return "\n"
	}
	return " "
}

func (c *WhereCompiler) compileGroup(g *queryir.Group, b binder) (string, error) {
	combinator, err := g.Normalized()
	if err != nil {
		return "", err
	}
	nl := c.newline()

	parts := make([]string, 0, len(g.Rules))
	for _, cond := range g.Rules {
		switch node := cond.(type) {
		case *queryir.Group:
			if node == nil || len(node.Rules) == 0 {
				continue
			}
			inner, err := c.compileGroup(node, b)
			if err != nil {
				return "", err
			}
			if inner == "" {
				continue
			}
			parts = append(parts, "("+nl+inner+nl+")")
		case queryir.Rule:
			expr, err := c.compileRule(node, b)
			if err != nil {
				return "", err
			}
			if expr != "" {
				parts = append(parts, expr)
			}
		default:
			return "", queryir.NewMalformedError("unsupported condition type %T", cond)
		}
	}

	return strings.Join(parts, " "+strings.ToUpper(string(combinator))+nl), nil
}

// compileRule returns "" for rules with an unknown operator.
func (c *WhereCompiler) compileRule(r queryir.Rule, b binder) (string, error) {
	def, ok := r.Kind().Def()
	if !ok {
		c.logger.Debug("skipping rule with unknown operator",
			"rule", r.ID,
			"field", r.Field,
			"operator", r.Operator)
		return "", nil
	}

	var rendered string
	if def.NbInputs > 0 {
		values, err := selectValues(r, def)
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		for i, v := range values {
			if i > 0 {
				sb.WriteString(def.Sep)
			}
			out, err := c.renderValue(r, def, v, b)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
		rendered = sb.String()
	}

	return r.Field + " " + strings.Replace(def.SQL, "?", rendered, 1), nil
}

// selectValues picks the values an operator consumes: every value for
// multiple-value operators, otherwise the first NbInputs. An empty list
// renders an empty IN().
func selectValues(r queryir.Rule, def queryir.OperatorDef) ([]any, error) {
	values := r.Values()
	if def.Multiple {
		return values, nil
	}
	if len(values) < def.NbInputs {
		return nil, queryir.NewMissingValueError(r, def.NbInputs, len(values))
	}
	return values[:def.NbInputs], nil
}

func (c *WhereCompiler) renderValue(r queryir.Rule, def queryir.OperatorDef, v any, b binder) (string, error) {
	switch {
	case r.Type.Coerces():
		coerced, err := coerce(r, v)
		if err != nil {
			return "", err
		}
		v = coerced
	case b == nil:
		if s, ok := v.(string); ok {
			v = Escape(s, c.opts.Dialect)
		}
	}

	if def.Mod != "" {
		v = applyMod(def.Mod, v)
	}

	if b != nil {
		return b.add(r.Field, v), nil
	}
	return literal(v), nil
}

// CompileString is a convenience for literal rendering of a tree.
func CompileString(root *queryir.Group, dialect Dialect) (string, error) {
	w, err := NewWhereCompiler(Options{Dialect: dialect}).Compile(root)
	if err != nil {
		return "", fmt.Errorf("compile where: %w", err)
	}
	return w.SQL, nil
}
