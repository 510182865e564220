package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/roach88/vizq/internal/ir"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Query runs a statement and returns all rows. An empty result is an empty
// (non-nil) slice.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			row[k] = readValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// TableMeta summarizes the table behind a descriptor:
//   - TimeField is the first DATE column
//   - AllFields lists every column
//   - LabelFields lists the groupBy fields, then the TEXT columns, without
//     duplicates
//
// A missing table yields an empty summary.
func (s *Store) TableMeta(ctx context.Context, desc ir.QueryDescriptor) (ir.TableMeta, error) {
	meta := ir.TableMeta{AllFields: []string{}, LabelFields: []string{}}

	cols, err := s.Columns(ctx, desc.Table)
	if err != nil {
		return meta, fmt.Errorf("table meta: %w", err)
	}
	if len(cols) == 0 {
		return meta, nil
	}

	labels := append([]string{}, desc.GroupBy...)
	for _, c := range cols {
		meta.AllFields = append(meta.AllFields, c.Name)
		switch {
		case c.Type == ir.TypeDate:
			if meta.TimeField == "" {
				meta.TimeField = c.Name
			}
		case strings.EqualFold(c.DeclType, "TEXT"):
			labels = append(labels, c.Name)
		}
	}
	meta.LabelFields = lo.Uniq(labels)
	return meta, nil
}

// Datasource resolves the descriptor field references into fields. References
// with fn "all" become source fields typed from the table columns; the rest
// become computed fields over their raw expression. A missing table or a
// descriptor without fields resolves to no fields.
func (s *Store) Datasource(ctx context.Context, desc ir.QueryDescriptor) (ir.Fields, error) {
	cols, err := s.Columns(ctx, desc.Table)
	if err != nil {
		return nil, fmt.Errorf("datasource: %w", err)
	}
	if len(cols) == 0 || len(desc.Fields) == 0 {
		return ir.Fields{}, nil
	}

	types := lo.SliceToMap(cols, func(c Column) (string, ir.FieldType) { return c.Name, c.Type })

	out := make(ir.Fields, 0, len(desc.Fields))
	for _, ref := range desc.Fields {
		if ref.Field == "" && ref.Raw == "" {
			continue
		}
		if ref.Fn == ir.FnAll {
			typ, ok := types[ref.Field]
			if !ok {
				typ = ir.TypeString
			}
			out = append(out, ir.NewSourceField(ref.Field, typ, ref.Alias))
			continue
		}
		out = append(out, ir.NewComputedField(ref.Raw, "", ""))
	}
	return out, nil
}
