package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
)

// RunRepository re-exports the shared interface for convenience.
type RunRepository = bq.RunRepository

// BigQueryRunRepository is the concrete RunRepository backed by BigQuery.
// It holds a shared client to avoid creating a new connection per operation.
type BigQueryRunRepository struct {
	client *bigquery.Client
}

// NewBigQueryRunRepository creates a new BigQueryRunRepository with a shared
// BigQuery client.
func NewBigQueryRunRepository(ctx context.Context) (*BigQueryRunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{client: client}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRunRepository) InsertDocument(ctx context.Context, row *bq.DocumentRow) error {
	return InsertDocumentWithClient(ctx, r.client, row)
}

func (r *BigQueryRunRepository) MarkDocumentProcessed(ctx context.Context, documentID, status string) error {
	return MarkDocumentProcessedWithClient(ctx, r.client, documentID, status)
}

func (r *BigQueryRunRepository) StartAnalysisRun(ctx context.Context, documentID, reportingDate string) (string, error) {
	return StartAnalysisRunWithClient(ctx, r.client, documentID, reportingDate)
}

func (r *BigQueryRunRepository) MarkAnalysisRunFailed(ctx context.Context, analysisRunID string, runErr error) {
	MarkAnalysisRunFailedWithClient(ctx, r.client, analysisRunID, runErr)
}

func (r *BigQueryRunRepository) MarkAnalysisRunSucceeded(ctx context.Context, analysisRunID, reportURI string) error {
	return MarkAnalysisRunSucceededWithClient(ctx, r.client, analysisRunID, reportURI)
}

func (r *BigQueryRunRepository) InsertMappingOutput(ctx context.Context, row *bq.MappingOutputRow) error {
	return InsertMappingOutputWithClient(ctx, r.client, row)
}

func (r *BigQueryRunRepository) ListAllDocuments(ctx context.Context) ([]*bq.DocumentRow, error) {
	return ListAllDocumentsWithClient(ctx, r.client)
}

func (r *BigQueryRunRepository) ListAnalysisRuns(ctx context.Context, documentID string) ([]*bq.AnalysisRunRow, error) {
	return ListAnalysisRunsWithClient(ctx, r.client, documentID)
}

func (r *BigQueryRunRepository) FindDocumentByChecksum(ctx context.Context, checksum string) (*bq.DocumentRow, error) {
	return FindDocumentByChecksumWithClient(ctx, r.client, checksum)
}
