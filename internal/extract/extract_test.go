package extract

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T, size int) *Evaluator {
	t.Helper()
	e, err := New(size)
	require.NoError(t, err)
	return e
}

func TestEvalPath(t *testing.T) {
	e := newEvaluator(t, 0)
	data := map[string]any{
		"raw_data": []any{
			[]any{"north", 10.0},
			[]any{"south", 20.0},
		},
		"fields": []any{"region", "value"},
	}

	rows, ok := e.Eval("raw_data", data)
	require.True(t, ok)
	assert.Equal(t, data["raw_data"], rows)

	fields, ok := e.Eval("fields", data)
	require.True(t, ok)
	assert.Equal(t, []any{"region", "value"}, fields)
}

func TestEvalFunction(t *testing.T) {
	e := newEvaluator(t, 0)

	total, ok := e.Eval("$sum(values)", map[string]any{"values": []any{1.0, 2.0, 3.0}})
	require.True(t, ok)
	assert.Equal(t, 6.0, total)
}

func TestEvalFailuresYieldFalse(t *testing.T) {
	e := newEvaluator(t, 0)
	data := map[string]any{"a": 1.0}

	_, ok := e.Eval("missing.path", data)
	assert.False(t, ok, "undefined result is a failure")

	_, ok = e.Eval("(((", data)
	assert.False(t, ok, "compile error is a failure")
}

func TestEvalMemoizes(t *testing.T) {
	e := newEvaluator(t, 0)

	_, ok := e.Eval("a", map[string]any{"a": 1.0, "b": 2.0})
	require.True(t, ok)
	// Structurally equal payload built in a different order.
	_, ok = e.Eval("a", map[string]any{"b": 2.0, "a": 1.0})
	require.True(t, ok)
	assert.Equal(t, 1, e.Len())

	_, ok = e.Eval("b", map[string]any{"a": 1.0, "b": 2.0})
	require.True(t, ok)
	assert.Equal(t, 2, e.Len())
}

func TestEvalMemoizesFailures(t *testing.T) {
	e := newEvaluator(t, 0)

	_, ok := e.Eval("nothing", map[string]any{})
	assert.False(t, ok)
	_, ok = e.Eval("nothing", map[string]any{})
	assert.False(t, ok)
	assert.Equal(t, 1, e.Len())
}

func TestEvalConcurrentUse(t *testing.T) {
	e := newEvaluator(t, 8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := e.Eval("n * 2", map[string]any{"n": float64(i % 4)})
			assert.True(t, ok)
			assert.Equal(t, float64(i%4)*2, v, "input %d", i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, e.Len())
}

func TestEvalCacheIsBounded(t *testing.T) {
	e := newEvaluator(t, 2)
	data := map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}

	for _, expr := range []string{"a", "b", "c"} {
		_, ok := e.Eval(expr, data)
		require.True(t, ok)
	}
	assert.Equal(t, 2, e.Len())
}

func TestEvalUnhashablePayload(t *testing.T) {
	e := newEvaluator(t, 0)

	e.Eval("b", map[string]any{"a": func() {}})
	assert.Equal(t, 0, e.Len(), "unhashable payloads are not memoized")
}

func TestEvalJSON(t *testing.T) {
	e := newEvaluator(t, 0)

	v, ok := e.EvalJSON("rows[0].name", []byte(`{"rows":[{"name":"x"}]}`))
	require.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = e.EvalJSON("a", []byte(`{not json`))
	assert.False(t, ok)
}
