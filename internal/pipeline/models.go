package pipeline

import (
	"github.com/kritis-ai/opos-analyzer/internal/aging"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
)

// Request describes one workbook analysis.
type Request struct {
	// Source is where the workbook lives: a gs:// URI, an http(s) URL, or
	// a local path.
	Source string

	// ReportingDate is the ISO date the maturity calculation is anchored
	// to. Empty means today.
	ReportingDate string

	// HideProcessedSheet hides the extended per-row sheet in the output
	// workbook.
	HideProcessedSheet bool
}

// Result is the outcome of one successful workbook analysis.
type Result struct {
	DocumentID    string `json:"document_id"`
	AnalysisRunID string `json:"analysis_run_id,omitempty"`

	// OutputPath is the local path of the rendered report workbook.
	OutputPath string `json:"output_path"`
	// ReportURI is the public URL of the uploaded artifact, or the local
	// path when no bucket is configured.
	ReportURI string `json:"report_uri"`

	Schema   *mapping.SemanticSchema `json:"schema"`
	Analysis *aging.AnalysisResult   `json:"analysis"`
	Warnings []aging.ParseWarning    `json:"warnings,omitempty"`
}
