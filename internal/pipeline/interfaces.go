package pipeline

import (
	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
)

// StorageService is the storage surface the pipeline needs.
type StorageService = storage.Service

// Mapper resolves the semantic columns of a workbook.
type Mapper = mapping.Mapper

// RunRepository records documents, analysis runs and mapping outputs.
type RunRepository = bq.RunRepository

// mappingModelName names the model behind a Mapper for the audit trail.
func mappingModelName(m Mapper) string {
	if g, ok := m.(*mapping.GeminiMapper); ok {
		if g.Model != "" {
			return g.Model
		}
		return mapping.DefaultModelName
	}
	return "static"
}
