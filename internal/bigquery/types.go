// Package bigquery holds the shared row types and repository interfaces for
// the analysis run tracking tables.
package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
)

// RunRepository provides an interface for run-tracking database operations.
type RunRepository interface {
	// InsertDocument inserts a single DocumentRow into the database.
	InsertDocument(ctx context.Context, row *DocumentRow) error

	// MarkDocumentProcessed sets processed_ts and analysis_status for a document.
	MarkDocumentProcessed(ctx context.Context, documentID, status string) error

	// StartAnalysisRun inserts a new analysis run with status=RUNNING and
	// returns the analysis_run_id.
	StartAnalysisRun(ctx context.Context, documentID, reportingDate string) (string, error)

	// MarkAnalysisRunFailed sets status=FAILED, finished_ts and error_message.
	MarkAnalysisRunFailed(ctx context.Context, analysisRunID string, runErr error)

	// MarkAnalysisRunSucceeded sets status=SUCCESS, finished_ts and the
	// report artifact URI.
	MarkAnalysisRunSucceeded(ctx context.Context, analysisRunID, reportURI string) error

	// InsertMappingOutput inserts a single MappingOutputRow into the database.
	InsertMappingOutput(ctx context.Context, row *MappingOutputRow) error

	// ListAllDocuments retrieves all documents from the database.
	ListAllDocuments(ctx context.Context) ([]*DocumentRow, error)

	// ListAnalysisRuns retrieves the analysis runs of a document, newest first.
	ListAnalysisRuns(ctx context.Context, documentID string) ([]*AnalysisRunRow, error)

	// FindDocumentByChecksum retrieves a document by its SHA-256 checksum.
	FindDocumentByChecksum(ctx context.Context, checksum string) (*DocumentRow, error)
}

// DocumentRow represents one source workbook registered for analysis.
type DocumentRow struct {
	DocumentID string `bigquery:"document_id"`
	SourceURI  string `bigquery:"source_uri"`

	UploadTS    time.Time              `bigquery:"upload_ts"`
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"`

	AnalysisStatus string `bigquery:"analysis_status"`

	OriginalFilename string `bigquery:"original_filename"`
	FileMimeType     string `bigquery:"file_mime_type"`

	ChecksumSHA256 string `bigquery:"checksum_sha256"`

	Metadata bigquery.NullJSON `bigquery:"metadata"`
}

// AnalysisRunRow represents one engine run over a document.
type AnalysisRunRow struct {
	AnalysisRunID string `bigquery:"analysis_run_id"`
	DocumentID    string `bigquery:"document_id"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	EngineVersion string            `bigquery:"engine_version"`
	ReportingDate bigquery.NullDate `bigquery:"reporting_date"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	// ReportURI points at the rendered report artifact once the run succeeds.
	ReportURI string `bigquery:"report_uri"`

	Metadata bigquery.NullJSON `bigquery:"metadata"`
}

// MappingOutputRow stores the raw semantic mapping the model returned for an
// analysis run, for auditability of the one non-deterministic step.
type MappingOutputRow struct {
	OutputID      string `bigquery:"output_id"`
	AnalysisRunID string `bigquery:"analysis_run_id"`
	DocumentID    string `bigquery:"document_id"`

	ModelName string `bigquery:"model_name"`

	RawJSON bigquery.NullJSON `bigquery:"raw_json"`

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"`
	Notes     bigquery.NullString    `bigquery:"notes"`
}
