package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/logger"
)

// EngineVersion tags every analysis run row so report numbers can be traced
// back to the engine revision that produced them.
const EngineVersion = "v1"

// StartAnalysisRun inserts a new row into analysis_runs with status=RUNNING
// and returns the generated analysis_run_id. reportingDate is the ISO date
// the run is anchored to; empty means the run defaulted to today.
func StartAnalysisRun(ctx context.Context, documentID, reportingDate string) (string, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("StartAnalysisRun: bigquery client: %w", err)
	}
	defer client.Close()

	return StartAnalysisRunWithClient(ctx, client, documentID, reportingDate)
}

// StartAnalysisRunWithClient inserts a new analysis_runs row with
// status=RUNNING using the provided BigQuery client.
func StartAnalysisRunWithClient(ctx context.Context, client *bigquery.Client, documentID, reportingDate string) (string, error) {
	analysisRunID := uuid.NewString()
	started := time.Now()

	var reporting bigquery.NullDate
	if reportingDate != "" {
		d, err := civil.ParseDate(reportingDate)
		if err != nil {
			return "", fmt.Errorf("StartAnalysisRun: parse reporting date %q: %w", reportingDate, err)
		}
		reporting = bigquery.NullDate{Date: d, Valid: true}
	}

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			analysis_run_id,
			document_id,
			started_ts,
			engine_version,
			reporting_date,
			status
		)
		VALUES (
			@analysis_run_id,
			@document_id,
			@started_ts,
			@engine_version,
			@reporting_date,
			@status
		)
	`, datasetID, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "analysis_run_id", Value: analysisRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: started},
		{Name: "engine_version", Value: EngineVersion},
		{Name: "reporting_date", Value: reporting},
		{Name: "status", Value: "RUNNING"},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("StartAnalysisRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("StartAnalysisRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("StartAnalysisRun: job error: %w", err)
	}

	return analysisRunID, nil
}

// MarkAnalysisRunFailed sets status=FAILED, finished_ts and error_message.
// Failures to record the failure are logged, not returned: the original run
// error is what the caller should surface.
func MarkAnalysisRunFailed(ctx context.Context, analysisRunID string, runErr error) {
	log := logger.FromContext(ctx)

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		log.Error().
			Err(err).
			Str("analysis_run_id", analysisRunID).
			Msg("MarkAnalysisRunFailed: bigquery client error")
		return
	}
	defer client.Close()

	MarkAnalysisRunFailedWithClient(ctx, client, analysisRunID, runErr)
}

// MarkAnalysisRunFailedWithClient sets status=FAILED, finished_ts and
// error_message using the provided BigQuery client.
func MarkAnalysisRunFailedWithClient(ctx context.Context, client *bigquery.Client, analysisRunID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE analysis_run_id = @analysis_run_id
	`, datasetID, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "analysis_run_id", Value: analysisRunID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("analysis_run_id", analysisRunID).
			Msg("MarkAnalysisRunFailed: running update query")
		return
	}

	status, err := job.Wait(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("analysis_run_id", analysisRunID).
			Msg("MarkAnalysisRunFailed: waiting for job")
		return
	}
	if err := status.Err(); err != nil {
		log.Error().
			Err(err).
			Str("analysis_run_id", analysisRunID).
			Msg("MarkAnalysisRunFailed: job completed with error")
	}
}

// MarkAnalysisRunSucceeded sets status=SUCCESS, finished_ts and the report
// artifact URI, and clears error_message.
func MarkAnalysisRunSucceeded(ctx context.Context, analysisRunID, reportURI string) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkAnalysisRunSucceededWithClient(ctx, client, analysisRunID, reportURI)
}

// MarkAnalysisRunSucceededWithClient sets status=SUCCESS, finished_ts and the
// report URI using the provided BigQuery client.
func MarkAnalysisRunSucceededWithClient(ctx context.Context, client *bigquery.Client, analysisRunID, reportURI string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    report_uri = @report_uri,
		    error_message = ""
		WHERE analysis_run_id = @analysis_run_id
	`, datasetID, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "report_uri", Value: reportURI},
		{Name: "analysis_run_id", Value: analysisRunID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: running update query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: job error: %w", err)
	}

	return nil
}

// ListAnalysisRuns retrieves the analysis runs of a document, newest first.
func ListAnalysisRuns(ctx context.Context, documentID string) ([]*bq.AnalysisRunRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListAnalysisRuns: creating client: %w", err)
	}
	defer client.Close()

	return ListAnalysisRunsWithClient(ctx, client, documentID)
}

// ListAnalysisRunsWithClient retrieves the analysis runs of a document using
// the provided BigQuery client.
func ListAnalysisRunsWithClient(ctx context.Context, client *bigquery.Client, documentID string) ([]*bq.AnalysisRunRow, error) {
	query := fmt.Sprintf(`
		SELECT
			analysis_run_id,
			document_id,
			started_ts,
			finished_ts,
			engine_version,
			reporting_date,
			status,
			error_message,
			report_uri,
			metadata
		FROM `+"`%s.%s.%s`"+`
		WHERE document_id = @document_id
		ORDER BY started_ts DESC
	`, projectID, datasetID, analysisRunsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAnalysisRunsWithClient: reading query: %w", err)
	}

	var runs []*bq.AnalysisRunRow
	for {
		var row bq.AnalysisRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAnalysisRunsWithClient: iterating: %w", err)
		}
		runs = append(runs, &row)
	}

	return runs, nil
}
