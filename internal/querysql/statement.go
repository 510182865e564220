package querysql

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/vizq/internal/ir"
)

// StatementMode selects how rule values reach the SQL text.
type StatementMode int

const (
	// StatementNone renders values inline as escaped literals.
	StatementNone StatementMode = iota

	// StatementQuestionMark renders positional ? placeholders.
	StatementQuestionMark

	// StatementNumbered renders $1, $2, ... (or a custom prefix).
	StatementNumbered

	// StatementNamed renders :field_1, :field_2, ... (or a custom prefix).
	StatementNamed
)

const (
	defaultNumberedPrefix = "$"
	defaultNamedPrefix    = ":"
)

// String returns the textual mode name.
func (m StatementMode) String() string {
	switch m {
	case StatementQuestionMark:
		return "question_mark"
	case StatementNumbered:
		return "numbered"
	case StatementNamed:
		return "named"
	}
	return "none"
}

var statementPattern = regexp.MustCompile(`(question_mark|numbered|named)(?:\((.)\))?`)

// ParseStatement parses a textual statement configuration such as
// "numbered", "named(@)" or "true". Empty, "false" and "none" select literal
// rendering; unrecognized text selects question-mark placeholders.
func ParseStatement(text string) (StatementMode, string) {
	switch strings.TrimSpace(text) {
	case "", "false", "none":
		return StatementNone, ""
	case "true":
		return StatementQuestionMark, ""
	}

	m := statementPattern.FindStringSubmatch(text)
	if m == nil {
		return StatementQuestionMark, ""
	}
	switch m[1] {
	case "numbered":
		return StatementNumbered, m[2]
	case "named":
		return StatementNamed, m[2]
	}
	return StatementQuestionMark, ""
}

// StatementFromBool maps the boolean form of the configuration.
func StatementFromBool(parameterized bool) StatementMode {
	if parameterized {
		return StatementQuestionMark
	}
	return StatementNone
}

// binder collects parameter values and returns their placeholders.
type binder interface {
	add(field string, value any) string
}

type questionMarkBinder struct {
	params []any
}

func (b *questionMarkBinder) add(_ string, value any) string {
	b.params = append(b.params, value)
	return "?"
}

type numberedBinder struct {
	prefix string
	params []any
}

func (b *numberedBinder) add(_ string, value any) string {
	b.params = append(b.params, value)
	return b.prefix + strconv.Itoa(len(b.params))
}

type namedBinder struct {
	prefix  string
	indexes map[string]int
	params  map[string]any
}

func (b *namedBinder) add(field string, value any) string {
	b.indexes[field]++
	key := field + "_" + strconv.Itoa(b.indexes[field])
	b.params[key] = value
	return b.prefix + key
}

// newBinder returns nil for literal rendering.
func newBinder(mode StatementMode, prefix string) binder {
	switch mode {
	case StatementQuestionMark:
		return &questionMarkBinder{params: []any{}}
	case StatementNumbered:
		if len(prefix) != 1 {
			prefix = defaultNumberedPrefix
		}
		return &numberedBinder{prefix: prefix, params: []any{}}
	case StatementNamed:
		if len(prefix) != 1 {
			prefix = defaultNamedPrefix
		}
		return &namedBinder{prefix: prefix, indexes: map[string]int{}, params: map[string]any{}}
	}
	return nil
}

// Where is a compiled WHERE clause.
//
// Params is set for positional modes, Named for the named mode; both are nil
// for literal rendering.
type Where struct {
	SQL    string
	Mode   StatementMode
	Params []any
	Named  map[string]any
}

// IsEmpty reports whether the clause has no SQL text.
func (w *Where) IsEmpty() bool {
	return w == nil || w.SQL == ""
}

// Args returns the values to pass alongside the clause to database/sql.
// Named parameters become sql.NamedArg values in key order.
func (w *Where) Args() []any {
	if w == nil {
		return nil
	}
	if w.Mode == StatementNamed {
		args := make([]any, 0, len(w.Named))
		for _, k := range ir.SortedKeys(w.Named) {
			args = append(args, sql.Named(k, w.Named[k]))
		}
		return args
	}
	return w.Params
}
