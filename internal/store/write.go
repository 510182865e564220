package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/roach88/vizq/internal/ir"
)

// maxVariables bounds the bound parameters of one INSERT statement.
const maxVariables = 999

// ExtractOptions selects the rows and column names of a payload.
type ExtractOptions struct {
	// ExtractData is a JSONata expression yielding the rows.
	ExtractData string

	// ExtractFields is a JSONata expression yielding the column names of
	// zipped (array-of-arrays) rows.
	ExtractFields string
}

// AddData writes a payload into the table for id, creating the table first.
//
// The payload is reshaped in three steps:
//  1. If ExtractData is set, its result replaces the payload. A failed
//     extraction keeps the raw payload.
//  2. Rows that are arrays are zipped into objects, using the names from
//     ExtractFields or, when absent or failed, the schema field names.
//  3. A single object counts as one row.
//
// Keys missing from the table become untyped columns. A nil payload writes
// nothing. With overwrite the table is emptied first; the whole write is one
// transaction.
func (s *Store) AddData(ctx context.Context, id string, fields []ir.SourceField, data any, overwrite bool, opts ExtractOptions) error {
	if err := s.CreateTable(ctx, id, fields); err != nil {
		return fmt.Errorf("add data: %w", err)
	}
	if data == nil {
		return nil
	}

	rows := s.extractRows(fields, data, opts)
	if err := s.writeRows(ctx, s.TableName(id), rows, overwrite); err != nil {
		return fmt.Errorf("add data: %w", err)
	}
	return nil
}

// InsertData loads a datasource payload, replacing the table contents. A
// payload that is not an array is written as a single row.
func (s *Store) InsertData(ctx context.Context, ds ir.Datasource, data any, opts ExtractOptions) error {
	if data == nil {
		return nil
	}
	if _, isList := data.([]any); !isList {
		data = []any{data}
	}
	return s.AddData(ctx, ds.ID, ds.Fields, data, true, opts)
}

func (s *Store) extractRows(fields []ir.SourceField, data any, opts ExtractOptions) []map[string]any {
	payload := data
	if opts.ExtractData != "" {
		if v, ok := s.evaluator.Eval(opts.ExtractData, data); ok {
			payload = v
		} else {
			s.logger.Debug("data extraction failed, using raw payload", "expr", opts.ExtractData)
		}
	}

	names := lo.Map(fields, func(f ir.SourceField, _ int) string { return f.FieldName })
	if opts.ExtractFields != "" {
		v, ok := s.evaluator.Eval(opts.ExtractFields, data)
		if extracted, err := cast.ToStringSliceE(v); ok && err == nil && len(extracted) > 0 {
			names = extracted
		} else {
			s.logger.Debug("field extraction failed, using schema names", "expr", opts.ExtractFields)
		}
	}

	return toRows(payload, names)
}

// toRows shapes a payload into row objects. Values that are neither
// objects nor arrays are skipped.
func toRows(payload any, names []string) []map[string]any {
	switch val := payload.(type) {
	case map[string]any:
		return []map[string]any{val}
	case []map[string]any:
		return val
	case []any:
		rows := make([]map[string]any, 0, len(val))
		for _, item := range val {
			switch r := item.(type) {
			case map[string]any:
				rows = append(rows, r)
			case []any:
				rows = append(rows, zipRow(names, r))
			}
		}
		return rows
	}
	return nil
}

// zipRow pairs names with values by position. Surplus values are dropped.
func zipRow(names []string, values []any) map[string]any {
	row := make(map[string]any, len(names))
	for i, name := range names {
		if i < len(values) {
			row[name] = values[i]
		}
	}
	return row
}

func (s *Store) writeRows(ctx context.Context, table string, rows []map[string]any, overwrite bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cols, err := columns(ctx, tx, table)
	if err != nil {
		return err
	}
	names := lo.Map(cols, func(c Column, _ int) string { return c.Name })
	known := lo.SliceToMap(names, func(n string) (string, bool) { return n, true })

	var extra []string
	for _, row := range rows {
		for _, k := range ir.SortedKeys(row) {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}

	switch {
	case len(cols) == 0 && len(extra) == 0:
		// No table and nothing to write.
		return nil
	case len(cols) == 0:
		quoted := lo.Map(extra, func(n string, _ int) string { return quoteIdent(n) })
		stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s from rows: %w", table, err)
		}
	default:
		for _, k := range extra {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), quoteIdent(k))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s: %w", k, err)
			}
		}
	}
	names = append(names, extra...)

	if overwrite {
		query, args, err := sq.Delete(quoteIdent(table)).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertRows(ctx, tx, table, names, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("data loaded", "table", table, "rows", len(rows), "overwrite", overwrite)
	return nil
}

func insertRows(ctx context.Context, q queryer, table string, names []string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	quoted := lo.Map(names, func(n string, _ int) string { return quoteIdent(n) })
	perStmt := max(1, maxVariables/len(names))

	for _, chunk := range lo.Chunk(rows, perStmt) {
		insert := sq.Insert(quoteIdent(table)).Columns(quoted...)
		for _, row := range chunk {
			values := make([]any, len(names))
			for i, n := range names {
				v, err := storageValue(row[n])
				if err != nil {
					return fmt.Errorf("column %s: %w", n, err)
				}
				values[i] = v
			}
			insert = insert.Values(values...)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}
