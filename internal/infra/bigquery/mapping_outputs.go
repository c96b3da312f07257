package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
)

// InsertMappingOutput inserts a single MappingOutputRow into mapping_outputs.
func InsertMappingOutput(ctx context.Context, row *bq.MappingOutputRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertMappingOutput: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertMappingOutputWithClient(ctx, client, row)
}

// InsertMappingOutputWithClient inserts a single MappingOutputRow using the
// provided BigQuery client. Uses DML INSERT to avoid streaming buffer issues.
func InsertMappingOutputWithClient(ctx context.Context, client *bigquery.Client, row *bq.MappingOutputRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.%s`"+` (
			output_id, analysis_run_id, document_id,
			model_name, raw_json, created_ts, notes
		)
		VALUES (
			@output_id, @analysis_run_id, @document_id,
			@model_name, @raw_json, @created_ts, @notes
		)
	`, projectID, datasetID, mappingOutputsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "analysis_run_id", Value: row.AnalysisRunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_json", Value: row.RawJSON},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "notes", Value: row.Notes},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertMappingOutput: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertMappingOutput: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertMappingOutput: job error: %w", err)
	}

	return nil
}
