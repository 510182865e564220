package querysql

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/vizq/internal/queryir"
)

// Dialect selects how literal strings are escaped.
type Dialect int

const (
	// DialectBackslash escapes with backslashes (MySQL style).
	DialectBackslash Dialect = iota

	// DialectSQLite doubles single quotes, the only escape SQLite knows.
	DialectSQLite
)

var backslashEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\b", `\b`,
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\t", `\t`,
	"\x1a", `\Z`,
)

var sqliteEscaper = strings.NewReplacer(`'`, `''`)

// Escape escapes a string for inclusion between single quotes.
func Escape(s string, d Dialect) string {
	if d == DialectSQLite {
		return sqliteEscaper.Replace(s)
	}
	return backslashEscaper.Replace(s)
}

// coerce converts a value to the rule's declared type. Booleans are encoded
// as 1 or 0.
func coerce(r queryir.Rule, v any) (any, error) {
	switch r.Type {
	case queryir.ValueInteger:
		n, err := toInteger(v)
		if err != nil {
			return nil, queryir.NewInvalidValueError(r, v, err)
		}
		return n, nil
	case queryir.ValueDouble:
		f, err := cast.ToFloat64E(trimmed(v))
		if err != nil {
			return nil, queryir.NewInvalidValueError(r, v, err)
		}
		return f, nil
	case queryir.ValueBoolean:
		if toBoolean(v) {
			return 1, nil
		}
		return 0, nil
	}
	return v, nil
}

// toInteger truncates toward zero, so "12.7" and 12.7 both give 12.
// Strings are parsed as decimal floats first to avoid octal and hex
// interpretation of leading zeros.
func toInteger(v any) (int64, error) {
	if s, ok := v.(string); ok {
		f, err := cast.ToFloat64E(strings.TrimSpace(s))
		if err != nil {
			return 0, err
		}
		return int64(math.Trunc(f)), nil
	}
	if f, ok := v.(float64); ok {
		return int64(math.Trunc(f)), nil
	}
	return cast.ToInt64E(v)
}

// toBoolean accepts true, "true" (any case, surrounding space ignored),
// "1" and the number 1.
func toBoolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.TrimSpace(b)
		return strings.EqualFold(s, "true") || s == "1"
	case nil:
		return false
	}
	f, err := cast.ToFloat64E(v)
	return err == nil && f == 1
}

func trimmed(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// literal renders a value inline. Strings are quoted, nil is NULL and
// everything else prints as-is.
func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + val + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	}
	return cast.ToString(v)
}

// applyMod substitutes the value into a LIKE pattern.
func applyMod(mod string, v any) string {
	return strings.ReplaceAll(mod, "{0}", cast.ToString(v))
}
