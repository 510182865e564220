package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/vizq/internal/ir"
)

// Column is an introspected table column.
type Column struct {
	Name string

	// DeclType is the declared SQL type, empty for untyped columns.
	DeclType string

	// Type is DeclType mapped back to a field type.
	Type ir.FieldType
}

// SQLType maps a field type to the declared column type.
func SQLType(t ir.FieldType) string {
	switch t {
	case ir.TypeString, "":
		return "TEXT"
	case ir.TypeNumber:
		return "REAL"
	case ir.TypeDate:
		return "DATE"
	case ir.TypeBoolean:
		return "BOOLEAN"
	}
	return strings.ToUpper(string(t))
}

// FieldTypeOf maps a declared column type back to a field type. Untyped
// columns are strings.
func FieldTypeOf(declType string) ir.FieldType {
	switch strings.ToUpper(declType) {
	case "TEXT", "":
		return ir.TypeString
	case "REAL":
		return ir.TypeNumber
	case "DATE":
		return ir.TypeDate
	case "BOOLEAN":
		return ir.TypeBoolean
	}
	return ir.FieldType(strings.ToLower(declType))
}

// quoteIdent quotes an identifier for DDL and DML.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableName returns the table backing a datasource id.
func (s *Store) TableName(id string) string {
	return ir.TableNameFor(id)
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("sqlite_master").
		Where(sq.Eq{"type": "table", "name": name}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build table lookup: %w", err)
	}

	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, args...); err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return n > 0, nil
}

func createTable(ctx context.Context, q queryer, name string, fields []ir.SourceField) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.FieldName] {
			continue
		}
		seen[f.FieldName] = true
		cols = append(cols, quoteIdent(f.FieldName)+" "+SQLType(f.Type))
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(name), strings.Join(cols, ", "))
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func dropTable(ctx context.Context, q queryer, name string) error {
	if _, err := q.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	return nil
}

func columns(ctx context.Context, q queryer, name string) ([]Column, error) {
	var info []struct {
		Name string `db:"name"`
		Type string `db:"type"`
	}
	err := q.SelectContext(ctx, &info, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", name)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}

	out := make([]Column, len(info))
	for i, c := range info {
		out[i] = Column{Name: c.Name, DeclType: c.Type, Type: FieldTypeOf(c.Type)}
	}
	return out, nil
}

// CreateTable creates the table for id unless it exists. A schema without
// fields creates nothing; AddData then creates the table from row keys.
func (s *Store) CreateTable(ctx context.Context, id string, fields []ir.SourceField) error {
	name := s.TableName(id)
	exists, err := tableExists(ctx, s.db, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := createTable(ctx, s.db, name, fields); err != nil {
		return err
	}
	if len(fields) > 0 {
		s.logger.Info("table created", "table", name, "columns", len(fields))
	}
	return nil
}

// DropTable removes the table for id if present.
func (s *Store) DropTable(ctx context.Context, id string) error {
	return dropTable(ctx, s.db, s.TableName(id))
}

// DropOrCreateTable unconditionally drops and recreates the table for id.
// Existing rows are discarded.
func (s *Store) DropOrCreateTable(ctx context.Context, id string, fields []ir.SourceField) error {
	name := s.TableName(id)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop or create %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	if err := dropTable(ctx, tx, name); err != nil {
		return err
	}
	if err := createTable(ctx, tx, name, fields); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop or create %s: commit: %w", name, err)
	}

	s.logger.Info("table recreated", "table", name, "columns", len(fields))
	return nil
}

// Columns returns the columns of the table for id in declaration order.
// A missing table has no columns.
func (s *Store) Columns(ctx context.Context, id string) ([]Column, error) {
	return columns(ctx, s.db, s.TableName(id))
}

// HasTable reports whether the table for id exists.
func (s *Store) HasTable(ctx context.Context, id string) (bool, error) {
	return tableExists(ctx, s.db, s.TableName(id))
}
