package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned by Combine when none of the queries is runnable.
	ErrNoData = errors.New("no runnable queries")

	// ErrExecution marks a failure of the embedded engine while running a
	// statement. Result.Err always wraps it.
	ErrExecution = errors.New("query execution failed")
)

// ExecutionError carries the statement that failed.
type ExecutionError struct {
	// SQL is the statement text as sent to the store.
	SQL string

	// Err is the underlying store error.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v (sql=%s)", ErrExecution, e.Err, e.SQL)
}

// Unwrap exposes both ErrExecution and the store error to errors.Is.
func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecution, e.Err}
}

// IsExecutionError reports whether err is, or wraps, an execution failure.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecution)
}

// Result is the outcome of Execute or Summary.
type Result struct {
	Rows []map[string]any
	Err  error
}

// OK reports whether the statement ran.
func (r Result) OK() bool {
	return r.Err == nil
}

// RowsOrEmpty returns the rows, or an empty slice when the statement failed.
func (r Result) RowsOrEmpty() []map[string]any {
	if r.Err != nil || r.Rows == nil {
		return []map[string]any{}
	}
	return r.Rows
}

func failed(sql string, err error) Result {
	return Result{Rows: []map[string]any{}, Err: &ExecutionError{SQL: sql, Err: err}}
}
