package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
)

// InsertDocument inserts a single DocumentRow into the documents table.
func InsertDocument(ctx context.Context, row *bq.DocumentRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertDocument: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertDocumentWithClient(ctx, client, row)
}

// InsertDocumentWithClient inserts a single DocumentRow using the provided
// BigQuery client.
func InsertDocumentWithClient(ctx context.Context, client *bigquery.Client, row *bq.DocumentRow) error {
	inserter := client.Dataset(datasetID).Table(documentsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertDocumentWithClient: inserting row: %w", err)
	}
	return nil
}

// MarkDocumentProcessed sets processed_ts and analysis_status for a document.
func MarkDocumentProcessed(ctx context.Context, documentID, status string) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("MarkDocumentProcessed: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkDocumentProcessedWithClient(ctx, client, documentID, status)
}

// MarkDocumentProcessedWithClient sets processed_ts and analysis_status using
// the provided BigQuery client.
func MarkDocumentProcessedWithClient(ctx context.Context, client *bigquery.Client, documentID, status string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET processed_ts = @processed_ts,
		    analysis_status = @analysis_status
		WHERE document_id = @document_id
	`, datasetID, documentsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "processed_ts", Value: time.Now()},
		{Name: "analysis_status", Value: status},
		{Name: "document_id", Value: documentID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkDocumentProcessed: running update query: %w", err)
	}
	jobStatus, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkDocumentProcessed: waiting for job: %w", err)
	}
	if err := jobStatus.Err(); err != nil {
		return fmt.Errorf("MarkDocumentProcessed: job error: %w", err)
	}
	return nil
}

// ListAllDocuments retrieves all documents, newest upload first.
func ListAllDocuments(ctx context.Context) ([]*bq.DocumentRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListAllDocuments: creating client: %w", err)
	}
	defer client.Close()

	return ListAllDocumentsWithClient(ctx, client)
}

// ListAllDocumentsWithClient retrieves all documents using the provided
// BigQuery client.
func ListAllDocumentsWithClient(ctx context.Context, client *bigquery.Client) ([]*bq.DocumentRow, error) {
	query := fmt.Sprintf(`
		SELECT
			document_id,
			source_uri,
			upload_ts,
			processed_ts,
			analysis_status,
			original_filename,
			file_mime_type,
			checksum_sha256,
			metadata
		FROM `+"`%s.%s.%s`"+`
		ORDER BY upload_ts DESC
	`, projectID, datasetID, documentsTable)

	q := client.Query(query)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllDocumentsWithClient: reading query: %w", err)
	}

	var documents []*bq.DocumentRow
	for {
		var row bq.DocumentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllDocumentsWithClient: iterating: %w", err)
		}
		documents = append(documents, &row)
	}

	return documents, nil
}

// FindDocumentByChecksum retrieves a document by its SHA-256 checksum.
// Returns nil if no document with the given checksum exists.
func FindDocumentByChecksum(ctx context.Context, checksum string) (*bq.DocumentRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksum: creating client: %w", err)
	}
	defer client.Close()

	return FindDocumentByChecksumWithClient(ctx, client, checksum)
}

// FindDocumentByChecksumWithClient retrieves a document by checksum using the
// provided BigQuery client.
func FindDocumentByChecksumWithClient(ctx context.Context, client *bigquery.Client, checksum string) (*bq.DocumentRow, error) {
	query := fmt.Sprintf(`
		SELECT
			document_id,
			source_uri,
			upload_ts,
			processed_ts,
			analysis_status,
			original_filename,
			file_mime_type,
			checksum_sha256,
			metadata
		FROM `+"`%s.%s.%s`"+`
		WHERE checksum_sha256 = @checksum
		LIMIT 1
	`, projectID, datasetID, documentsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksumWithClient: reading query: %w", err)
	}

	var row bq.DocumentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksumWithClient: reading row: %w", err)
	}

	return &row, nil
}
