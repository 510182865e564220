// Package extract evaluates JSONata expressions against decoded JSON
// payloads, memoizing results in a bounded LRU cache.
//
// Results are keyed by (expression, content hash of the payload), so the same
// expression over structurally equal data is evaluated once. Evaluation
// failures are not errors: Eval reports ok == false, the failure is memoized
// like any other result, and callers fall back to the raw payload.
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/blues/jsonata-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/vizq/internal/ir"
)

// DefaultCacheSize bounds the result and compiled-expression caches.
const DefaultCacheSize = 1024

type result struct {
	value any
	ok    bool
}

// Evaluator evaluates and memoizes expressions. It is safe for concurrent
// use; the caches synchronize themselves.
type Evaluator struct {
	results  *lru.Cache[string, result]
	compiled *lru.Cache[string, *jsonata.Expr]
	logger   *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for swallowed evaluation failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an evaluator whose caches hold at most size entries each.
// A size below 1 selects DefaultCacheSize.
func New(size int, opts ...Option) (*Evaluator, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	results, err := lru.New[string, result](size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	compiled, err := lru.New[string, *jsonata.Expr](size)
	if err != nil {
		return nil, fmt.Errorf("create expression cache: %w", err)
	}

	e := &Evaluator{
		results:  results,
		compiled: compiled,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Eval evaluates expr against data. ok is false when the expression does not
// compile, fails at runtime or yields no result.
func (e *Evaluator) Eval(expr string, data any) (any, bool) {
	hash, err := ir.ContentHash(data)
	if err != nil {
		// Unhashable payloads are evaluated without memoization.
		e.logger.Debug("extraction payload not hashable", "error", err)
		return e.evaluate(expr, data)
	}
	key := expr + "\x00" + hash

	if cached, hit := e.results.Get(key); hit {
		return cached.value, cached.ok
	}

	value, ok := e.evaluate(expr, data)
	e.results.Add(key, result{value: value, ok: ok})
	return value, ok
}

// EvalJSON evaluates expr against a JSON document.
func (e *Evaluator) EvalJSON(expr string, doc []byte) (any, bool) {
	var data any
	if err := json.Unmarshal(doc, &data); err != nil {
		e.logger.Debug("extraction input is not JSON", "expr", expr, "error", err)
		return nil, false
	}
	return e.Eval(expr, data)
}

// Len returns the number of memoized results.
func (e *Evaluator) Len() int {
	return e.results.Len()
}

func (e *Evaluator) evaluate(expr string, data any) (any, bool) {
	compiled, err := e.compile(expr)
	if err != nil {
		e.logger.Debug("extraction expression does not compile", "expr", expr, "error", err)
		return nil, false
	}

	value, err := compiled.Eval(data)
	if err != nil {
		e.logger.Debug("extraction failed", "expr", expr, "error", err)
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}

func (e *Evaluator) compile(expr string) (*jsonata.Expr, error) {
	if c, ok := e.compiled.Get(expr); ok {
		return c, nil
	}
	c, err := jsonata.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.compiled.Add(expr, c)
	return c, nil
}
