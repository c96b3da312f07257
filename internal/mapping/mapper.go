package mapping

import (
	"context"
	"fmt"
	"strings"
)

// Mapper identifies the semantic columns of a source table from its header
// and one sample data row.
type Mapper interface {
	MapColumns(ctx context.Context, header []string, sampleRow map[string]any) (*SemanticSchema, error)
}

// StaticMapper returns a fixed schema and skips the model call. It covers
// batch runs over exports with a known layout and keeps tests hermetic.
type StaticMapper struct {
	Schema SemanticSchema
}

func (m *StaticMapper) MapColumns(_ context.Context, header []string, _ map[string]any) (*SemanticSchema, error) {
	if err := m.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("StaticMapper: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	for _, col := range []string{m.Schema.AmountLocalCurrency, m.Schema.DueDate, m.Schema.PostingDate, m.Schema.DocumentType} {
		if !present[col] {
			return nil, fmt.Errorf("StaticMapper: column %q not in header [%s]", col, strings.Join(header, ", "))
		}
	}

	schema := m.Schema
	return &schema, nil
}
