package store

import (
	"encoding/json"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/vizq/internal/extract"
)

// lastAggregator implements LAST(x).
type lastAggregator struct {
	value any
}

// Step records v. The driver hands NULL to generic arguments as a nil
// []byte, which is turned back into nil.
func (a *lastAggregator) Step(v any) {
	if b, ok := v.([]byte); ok && b == nil {
		a.value = nil
		return
	}
	a.value = v
}

func (a *lastAggregator) Done() any {
	return a.value
}

// registerFunctions installs the custom SQL functions on a new connection.
func registerFunctions(conn *sqlite3.SQLiteConn, evaluator *extract.Evaluator) error {
	if err := conn.RegisterAggregator("last", func() *lastAggregator {
		return &lastAggregator{}
	}, true); err != nil {
		return fmt.Errorf("register last: %w", err)
	}

	if err := conn.RegisterFunc("jsonata", func(expr string, doc any) any {
		return jsonataSQL(evaluator, expr, doc)
	}, true); err != nil {
		return fmt.Errorf("register jsonata: %w", err)
	}
	return nil
}

// jsonataSQL evaluates expr over a JSON text column. Failures yield NULL.
// Structured results are returned as JSON text and booleans as 1 or 0.
func jsonataSQL(evaluator *extract.Evaluator, expr string, doc any) any {
	var text []byte
	switch d := doc.(type) {
	case string:
		text = []byte(d)
	case []byte:
		text = d
	default:
		return nil
	}

	v, ok := evaluator.EvalJSON(expr, text)
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case string, float64, int64:
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(out)
}
