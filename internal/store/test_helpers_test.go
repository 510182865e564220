package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vizq/internal/ir"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// salesFields is the schema used by most store tests.
func salesFields() []ir.SourceField {
	return []ir.SourceField{
		ir.NewSourceField("region", ir.TypeString, ""),
		ir.NewSourceField("revenue", ir.TypeNumber, ""),
		ir.NewSourceField("day", ir.TypeDate, ""),
	}
}

// countRows returns the number of rows in the table for id.
func countRows(t *testing.T, s *Store, id string) int {
	t.Helper()
	var n int
	err := s.DB().GetContext(context.Background(), &n, "SELECT COUNT(*) FROM "+quoteIdent(s.TableName(id)))
	require.NoError(t, err)
	return n
}
