package harness

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"

	"github.com/roach88/vizq/internal/filters"
	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/store"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// validIdentifier restricts the column names final_state interpolates.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EvaluateAssertions evaluates all assertions against out and returns the
// failure messages. st serves final_state assertions.
func EvaluateAssertions(ctx context.Context, out *Output, st *store.Store, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(ctx, out, st, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(ctx context.Context, out *Output, st *store.Store, a Assertion) error {
	switch a.Type {
	case AssertSQLContains:
		return assertSQL(out, a, strings.Contains)
	case AssertSQLEquals:
		return assertSQL(out, a, func(s, sub string) bool { return s == sub })
	case AssertRowCount:
		if len(out.Rows) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d rows", a.Count), Actual: fmt.Sprintf("%d rows", len(out.Rows))}
		}
	case AssertRowsContain:
		return assertContains(a.Type, out.Rows, a.Expect)
	case AssertSummary:
		return assertContains(a.Type, out.Summary, a.Expect)
	case AssertRowsOrder:
		return assertOrder(out, a)
	case AssertKeyed:
		return assertKeyed(out, a)
	case AssertOptions:
		return assertOptions(out, a)
	case AssertNoData:
		if !out.NoData {
			return &AssertionError{Type: a.Type, Expected: "no data", Actual: fmt.Sprintf("%d statements", len(out.SQL))}
		}
	case AssertErrorCount:
		if len(out.Errors) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d errors", a.Count), Actual: fmt.Sprintf("%v", out.Errors)}
		}
	case AssertFinalState:
		if st == nil {
			return fmt.Errorf("final_state requires a store")
		}
		return assertFinalState(ctx, st, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertSQL(out *Output, a Assertion, match func(s, sub string) bool) error {
	if a.Query >= len(out.SQL) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("statement %d", a.Query), Actual: fmt.Sprintf("%d statements", len(out.SQL))}
	}
	if got := out.SQL[a.Query]; !match(got, a.Text) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q", a.Text), Actual: fmt.Sprintf("%q", got)}
	}
	return nil
}

func assertContains(typ string, rows []map[string]any, expect map[string]any) error {
	if lo.SomeBy(rows, func(row map[string]any) bool { return matchRow(row, expect) }) {
		return nil
	}
	return &AssertionError{Type: typ, Expected: fmt.Sprintf("a row matching %v", expect), Actual: fmt.Sprintf("%v", rows)}
}

func assertOrder(out *Output, a Assertion) error {
	got := lo.Map(out.Rows, func(row map[string]any, _ int) any { return row[a.Field] })
	if !valuesEqual(got, a.Values) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s in order %v", a.Field, a.Values), Actual: fmt.Sprintf("%v", got)}
	}
	return nil
}

func assertKeyed(out *Output, a Assertion) error {
	got, ok := out.Keyed[a.Key]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("key %q", a.Key), Actual: fmt.Sprintf("keys %v", lo.Keys(out.Keyed))}
	}
	if list, isList := got.([]map[string]any); isList {
		if a.Count > 0 && len(list) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q with %d rows", a.Key, a.Count), Actual: fmt.Sprintf("%d rows", len(list))}
		}
		if len(a.Expect) > 0 {
			return assertContains(a.Type, list, a.Expect)
		}
		return nil
	}
	if len(a.Expect) == 0 {
		return nil
	}
	row, isRow := got.(map[string]any)
	if !isRow || !matchRow(row, a.Expect) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q matching %v", a.Key, a.Expect), Actual: fmt.Sprintf("%v", got)}
	}
	return nil
}

func assertOptions(out *Output, a Assertion) error {
	got := lo.Map(out.Options, func(o filters.Option, _ int) any { return o.Value })
	if len(a.Values) == 0 {
		if len(got) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d options", a.Count), Actual: fmt.Sprintf("%v", got)}
		}
		return nil
	}
	if !valuesEqual(got, a.Values) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Values), Actual: fmt.Sprintf("%v", got)}
	}
	return nil
}

// assertFinalState checks that exactly one row of the table matches Where
// and that it carries the expected values.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	for key := range a.Where {
		if !validIdentifier.MatchString(key) {
			return fmt.Errorf("invalid column name %q in where clause", key)
		}
	}

	query := sq.Select("*").From(st.TableName(a.Table))
	if len(a.Where) > 0 {
		query = query.Where(sq.Eq(a.Where))
	}
	text, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build final_state query: %w", err)
	}

	rows, err := st.Query(ctx, text, args...)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("query table %s", a.Table), Actual: fmt.Sprintf("query error: %v", err)}
	}
	switch len(rows) {
	case 0:
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("row in %s where %v", a.Table, a.Where), Actual: "row not found"}
	case 1:
	default:
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("exactly one row in %s where %v", a.Table, a.Where), Actual: fmt.Sprintf("%d rows", len(rows))}
	}

	if !matchRow(rows[0], a.Expect) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Expect), Actual: fmt.Sprintf("%v", rows[0])}
	}
	return nil
}

// matchRow reports whether row holds every expected field. Extra fields in
// row are ignored.
func matchRow(row map[string]any, expect map[string]any) bool {
	for key, want := range expect {
		got, ok := row[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares values by their canonical JSON, so 10, int64(10) and
// 10.0 are equal.
func valuesEqual(a, b any) bool {
	ca, errA := ir.MarshalCanonical(a)
	cb, errB := ir.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
