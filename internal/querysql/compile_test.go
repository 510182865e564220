package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/queryir"
)

func and(rules ...queryir.Condition) *queryir.Group {
	return queryir.NewGroup("", queryir.CombinatorAnd, rules...)
}

func or(rules ...queryir.Condition) *queryir.Group {
	return queryir.NewGroup("", queryir.CombinatorOr, rules...)
}

func rule(field, op string, value any) queryir.Rule {
	return queryir.Rule{Field: field, Operator: op, Value: value}
}

func typed(field, op string, value any, typ queryir.ValueType) queryir.Rule {
	return queryir.Rule{Field: field, Operator: op, Value: value, Type: typ}
}

func TestCompile_Literal(t *testing.T) {
	tests := []struct {
		name     string
		root     *queryir.Group
		dialect  Dialect
		expected string
	}{
		{"greater", and(rule("revenue", "greater", 50.0)), DialectBackslash, "revenue > 50"},
		{"equal string", and(rule("region", "equal", "north")), DialectBackslash, "region = 'north'"},
		{"not equal", and(rule("region", "not_equal", "north")), DialectBackslash, "region != 'north'"},
		{"in", and(rule("region", "in", []any{"north", "south"})), DialectBackslash, "region IN('north', 'south')"},
		{"not in scalar", and(rule("region", "not_in", "east")), DialectBackslash, "region NOT IN('east')"},
		{"between", and(rule("revenue", "between", []any{10.0, 20.0})), DialectBackslash, "revenue BETWEEN 10 AND 20"},
		{"not between", and(rule("revenue", "not_between", []any{1.5, 2.0, 3.0})), DialectBackslash, "revenue NOT BETWEEN 1.5 AND 2"},
		{"begins with", and(rule("name", "begins_with", "ac")), DialectBackslash, "name LIKE('ac%')"},
		{"not begins with", and(rule("name", "not_begins_with", "ac")), DialectBackslash, "name NOT LIKE('ac%')"},
		{"contains", and(rule("name", "contains", "ac")), DialectBackslash, "name LIKE('%ac%')"},
		{"not contains", and(rule("name", "not_contains", "ac")), DialectBackslash, "name NOT LIKE('%ac%')"},
		{"ends with", and(rule("name", "ends_with", "ac")), DialectBackslash, "name LIKE('%ac')"},
		{"not ends with", and(rule("name", "not_ends_with", "ac")), DialectBackslash, "name NOT LIKE('%ac')"},
		{"is empty", and(rule("name", "is_empty", nil)), DialectBackslash, "name = ''"},
		{"is not empty", and(rule("name", "is_not_empty", "ignored")), DialectBackslash, "name != ''"},
		{"is null", and(rule("name", "is_null", nil)), DialectBackslash, "name IS NULL"},
		{"is not null", and(rule("name", "is_not_null", nil)), DialectBackslash, "name IS NOT NULL"},
		{"less", and(rule("n", "less", 3)), DialectBackslash, "n < 3"},
		{"less or equal", and(rule("n", "less_or_equal", 3)), DialectBackslash, "n <= 3"},
		{"greater or equal", and(rule("n", "greater_or_equal", 3)), DialectBackslash, "n >= 3"},
		{"single input takes first", and(rule("a", "equal", []any{1.0, 2.0})), DialectBackslash, "a = 1"},
		{"boolean literal", and(rule("flag", "equal", true)), DialectBackslash, "flag = TRUE"},
		{"backslash escaping", and(rule("name", "contains", "o'k")), DialectBackslash, `name LIKE('%o\'k%')`},
		{"sqlite escaping", and(rule("name", "contains", "o'k")), DialectSQLite, `name LIKE('%o''k%')`},
		{"sqlite keeps backslash", and(rule("path", "equal", `a\b`)), DialectSQLite, `path = 'a\b'`},
		{"and join", and(rule("a", "equal", 1), rule("b", "equal", 2)), DialectBackslash, "a = 1 AND b = 2"},
		{"or join", or(rule("a", "equal", 1), rule("b", "equal", 2)), DialectBackslash, "a = 1 OR b = 2"},
		{
			"nested group",
			and(rule("a", "equal", 1), or(rule("b", "equal", "x"), rule("c", "equal", "y"))),
			DialectBackslash,
			"a = 1 AND ( b = 'x' OR c = 'y' )",
		},
		{
			"upper case combinator",
			queryir.NewGroup("", "OR", rule("a", "equal", 1), rule("b", "equal", 2)),
			DialectBackslash,
			"a = 1 OR b = 2",
		},
		{
			"empty combinator defaults to and",
			queryir.NewGroup("", "", rule("a", "equal", 1), rule("b", "equal", 2)),
			DialectBackslash,
			"a = 1 AND b = 2",
		},
		{"nil value renders NULL", and(rule("region", "equal", nil)), DialectBackslash, "region = NULL"},
		{"nil in list renders NULL", and(rule("region", "in", []any{"north", nil})), DialectBackslash, "region IN('north', NULL)"},
		{"empty in list", and(rule("region", "in", []any{})), DialectBackslash, "region IN()"},
		{"empty not_in list", and(rule("region", "not_in", []string{})), DialectBackslash, "region NOT IN()"},
		{"unknown operator skipped", and(rule("a", "roughly", 1), rule("b", "equal", 2)), DialectBackslash, "b = 2"},
		{"empty nested group dropped", and(rule("a", "equal", 1), and()), DialectBackslash, "a = 1"},
		{"skipped-only nested group dropped", and(rule("a", "equal", 1), or(rule("b", "roughly", 1))), DialectBackslash, "a = 1"},
		{"empty root", and(), DialectBackslash, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWhereCompiler(Options{Dialect: tt.dialect}).Compile(tt.root)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, w.SQL)
			assert.Nil(t, w.Params, "literal rendering has no params")
			assert.Nil(t, w.Named)
		})
	}
}

func TestCompile_Coercion(t *testing.T) {
	tests := []struct {
		name     string
		rule     queryir.Rule
		expected string
	}{
		{"integer from string", typed("a", "equal", "12", queryir.ValueInteger), "a = 12"},
		{"integer truncates", typed("a", "equal", "12.7", queryir.ValueInteger), "a = 12"},
		{"integer no octal", typed("a", "equal", "010", queryir.ValueInteger), "a = 10"},
		{"integer from float", typed("a", "equal", 9.9, queryir.ValueInteger), "a = 9"},
		{"double from string", typed("a", "equal", " 3.5 ", queryir.ValueDouble), "a = 3.5"},
		{"boolean true string", typed("flag", "equal", "TRUE ", queryir.ValueBoolean), "flag = 1"},
		{"boolean one string", typed("flag", "equal", "1", queryir.ValueBoolean), "flag = 1"},
		{"boolean one number", typed("flag", "equal", 1.0, queryir.ValueBoolean), "flag = 1"},
		{"boolean false", typed("flag", "equal", "no", queryir.ValueBoolean), "flag = 0"},
		{"boolean bool", typed("flag", "equal", true, queryir.ValueBoolean), "flag = 1"},
		{"coerced value is not escaped but mod is quoted", typed("a", "begins_with", "5", queryir.ValueDouble), "a LIKE('5%')"},
		{"string type is escaped", typed("a", "equal", "it's", queryir.ValueString), `a = 'it\'s'`},
		{"in list coerced", typed("a", "in", []any{"1", "2"}, queryir.ValueInteger), "a IN(1, 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWhereCompiler(Options{}).Compile(and(tt.rule))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, w.SQL)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		root *queryir.Group
		code queryir.ConstructionErrorCode
	}{
		{"invalid combinator", queryir.NewGroup("g-1", "xor", rule("a", "equal", 1)), queryir.ErrCodeInvalidCombinator},
		{"invalid nested combinator", and(queryir.NewGroup("g-2", "nand", rule("a", "equal", 1))), queryir.ErrCodeInvalidCombinator},
		{"between one value", and(rule("a", "between", 1)), queryir.ErrCodeMissingValue},
		{"equal with empty list", and(rule("a", "equal", []any{})), queryir.ErrCodeMissingValue},
		{"uncoercible integer", and(typed("a", "equal", "abc", queryir.ValueInteger)), queryir.ErrCodeInvalidValue},
		{"uncoercible double", and(typed("a", "equal", "1,5", queryir.ValueDouble)), queryir.ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWhereCompiler(Options{}).Compile(tt.root)
			require.Error(t, err)
			assert.True(t, queryir.IsConstructionError(err))
			assert.True(t, queryir.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCompile_NilRoot(t *testing.T) {
	w, err := NewWhereCompiler(Options{Mode: StatementQuestionMark}).Compile(nil)
	require.NoError(t, err)
	assert.True(t, w.IsEmpty())
}

func TestCompile_Parameterized(t *testing.T) {
	root := and(
		rule("revenue", "greater", 50.0),
		rule("region", "in", []any{"north", "south"}),
	)

	tests := []struct {
		name   string
		mode   StatementMode
		prefix string
		sql    string
	}{
		{"question mark", StatementQuestionMark, "", "revenue > ? AND region IN(?, ?)"},
		{"numbered", StatementNumbered, "", "revenue > $1 AND region IN($2, $3)"},
		{"numbered custom prefix", StatementNumbered, "@", "revenue > @1 AND region IN(@2, @3)"},
		{"numbered long prefix falls back", StatementNumbered, "@@", "revenue > $1 AND region IN($2, $3)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWhereCompiler(Options{Mode: tt.mode, Prefix: tt.prefix}).Compile(root)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, w.SQL)
			assert.Equal(t, []any{50.0, "north", "south"}, w.Params)
			assert.Nil(t, w.Named)
		})
	}
}

func TestCompile_ParameterizedNil(t *testing.T) {
	w, err := NewWhereCompiler(Options{Mode: StatementQuestionMark}).Compile(and(rule("region", "not_equal", nil)))
	require.NoError(t, err)
	assert.Equal(t, "region != ?", w.SQL)
	assert.Equal(t, []any{nil}, w.Params)
}

func TestCompile_Named(t *testing.T) {
	root := and(
		rule("region", "equal", "north"),
		rule("revenue", "greater", 50.0),
		rule("region", "not_equal", "south"),
	)

	w, err := NewWhereCompiler(Options{Mode: StatementNamed}).Compile(root)
	require.NoError(t, err)
	assert.Equal(t, "region = :region_1 AND revenue > :revenue_1 AND region != :region_2", w.SQL)
	assert.Equal(t, map[string]any{
		"region_1":  "north",
		"region_2":  "south",
		"revenue_1": 50.0,
	}, w.Named)
	assert.Nil(t, w.Params)

	w, err = NewWhereCompiler(Options{Mode: StatementNamed, Prefix: "@"}).Compile(root)
	require.NoError(t, err)
	assert.Equal(t, "region = @region_1 AND revenue > @revenue_1 AND region != @region_2", w.SQL)
}

func TestCompile_ParameterizedSkipsEscaping(t *testing.T) {
	w, err := NewWhereCompiler(Options{Mode: StatementQuestionMark}).Compile(and(
		rule("name", "contains", "o'k"),
		typed("flag", "equal", "true", queryir.ValueBoolean),
	))
	require.NoError(t, err)
	assert.Equal(t, "name LIKE(?) AND flag = ?", w.SQL)
	assert.Equal(t, []any{"%o'k%", 1}, w.Params)
}

func TestCompile_ReusableCompiler(t *testing.T) {
	c := NewWhereCompiler(Options{Mode: StatementNumbered})
	root := and(rule("a", "equal", 1))

	first, err := c.Compile(root)
	require.NoError(t, err)
	second, err := c.Compile(root)
	require.NoError(t, err)

	assert.Equal(t, "a = $1", first.SQL)
	assert.Equal(t, first.SQL, second.SQL, "counters must reset between compilations")
}

func TestCompileString(t *testing.T) {
	got, err := CompileString(and(rule("a", "equal", "x")), DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, "a = 'x'", got)

	_, err = CompileString(queryir.NewGroup("", "nope"), DialectSQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile where")
}

func TestCompile_GoldenMultiline(t *testing.T) {
	root := and(
		rule("a", "equal", 1),
		or(rule("b", "equal", "x"), rule("c", "equal", "y")),
		rule("d", "is_null", nil),
	)

	w, err := NewWhereCompiler(Options{Multiline: true}).Compile(root)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "nested_multiline", []byte(w.SQL))
}

func TestCompile_GoldenNamed(t *testing.T) {
	root := and(
		typed("revenue", "greater", 50, queryir.ValueDouble),
		or(rule("region", "equal", "north"), rule("region", "equal", "south")),
		rule("name", "contains", "ac"),
	)

	w, err := NewWhereCompiler(Options{Mode: StatementNamed}).Compile(root)
	require.NoError(t, err)

	params, err := ir.MarshalCanonical(w.Named)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "nested_named", []byte(w.SQL+"\n"+string(params)+"\n"))
}
