// Package pipeline orchestrates one workbook analysis end to end: fetch,
// register, map columns, run the aging engine, render and publish the
// report.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/kritis-ai/opos-analyzer/internal/aging"
	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/logger"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
	"github.com/kritis-ai/opos-analyzer/internal/workbook"
)

// Pipeline wires the collaborators of a workbook analysis. Runs may be nil,
// which disables run tracking; Bucket may be empty, which keeps the report
// artifact local.
type Pipeline struct {
	Storage StorageService
	Mapper  Mapper
	Runs    RunRepository

	Bucket    string
	OutputDir string
}

// AnalyzeWorkbook processes a single open-items workbook.
func (p *Pipeline) AnalyzeWorkbook(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx)

	if req.Source == "" {
		return nil, fmt.Errorf("AnalyzeWorkbook: empty source")
	}

	// 1. Fetch the workbook bytes.
	data, err := p.Storage.FetchWorkbook(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeWorkbook: fetching workbook: %w", err)
	}
	log.Info().Str("source", req.Source).Int("bytes", len(data)).Msg("workbook fetched")

	// 2. Register the document, reusing an earlier registration when the
	// same file was analyzed before.
	documentID, err := p.registerDocument(ctx, req.Source, data)
	if err != nil {
		return nil, err
	}

	// 3. Start an analysis run (status=RUNNING).
	analysisRunID, err := p.startRun(ctx, documentID, req.ReportingDate)
	if err != nil {
		return nil, err
	}

	// 4. Materialize the workbook locally for the xlsx reader and the
	// report renderer.
	inputPath, err := p.materialize(req.Source, data)
	if err != nil {
		p.markRunFailed(ctx, analysisRunID, err)
		return nil, err
	}

	// 5. Read the first sheet into a table.
	table, err := workbook.ReadTable(inputPath)
	if err != nil {
		p.markRunFailed(ctx, analysisRunID, err)
		return nil, fmt.Errorf("AnalyzeWorkbook: reading workbook: %w", err)
	}

	// 6. Resolve the semantic columns.
	var sampleRow map[string]any
	if len(table.Rows) > 0 {
		sampleRow = table.Rows[0]
	}
	schema, err := p.Mapper.MapColumns(ctx, table.Header, sampleRow)
	if err != nil {
		p.markRunFailed(ctx, analysisRunID, err)
		return nil, fmt.Errorf("AnalyzeWorkbook: mapping columns: %w", err)
	}
	log.Info().
		Str("amount_column", schema.AmountLocalCurrency).
		Str("due_date_column", schema.DueDate).
		Str("currency_symbol", schema.CurrencySymbol).
		Msg("semantic columns resolved")

	// 7. Store the raw mapping output for auditability.
	p.storeMappingOutput(ctx, analysisRunID, documentID, schema)

	// 8. Run the aging engine.
	opts := aging.Options{}
	if req.ReportingDate != "" {
		d, err := civil.ParseDate(req.ReportingDate)
		if err != nil {
			parseErr := fmt.Errorf("AnalyzeWorkbook: parse reporting date %q: %w", req.ReportingDate, err)
			p.markRunFailed(ctx, analysisRunID, parseErr)
			return nil, parseErr
		}
		opts.ReportingDate = d
	}
	analysis, warnings, err := aging.Analyze(table, schema.ColumnMap(), opts)
	if err != nil {
		p.markRunFailed(ctx, analysisRunID, err)
		return nil, fmt.Errorf("AnalyzeWorkbook: running engine: %w", err)
	}
	for _, w := range warnings {
		log.Warn().Str("warning", w.String()).Msg("cell skipped")
	}

	// 9. Render the report workbook.
	outputPath := p.outputPath(inputPath)
	if err := workbook.WriteReport(inputPath, outputPath, analysis, req.HideProcessedSheet); err != nil {
		p.markRunFailed(ctx, analysisRunID, err)
		return nil, fmt.Errorf("AnalyzeWorkbook: rendering report: %w", err)
	}

	// 10. Publish the artifact when a bucket is configured.
	reportURI := outputPath
	if p.Bucket != "" {
		objectName := filepath.Base(outputPath)
		uri, err := p.Storage.UploadFile(ctx, p.Bucket, objectName, outputPath)
		if err != nil {
			p.markRunFailed(ctx, analysisRunID, err)
			return nil, fmt.Errorf("AnalyzeWorkbook: uploading report: %w", err)
		}
		reportURI = uri
	}

	// 11. Mark the run and the document as done.
	if p.Runs != nil {
		if err := p.Runs.MarkAnalysisRunSucceeded(ctx, analysisRunID, reportURI); err != nil {
			return nil, fmt.Errorf("AnalyzeWorkbook: closing run: %w", err)
		}
		if err := p.Runs.MarkDocumentProcessed(ctx, documentID, "SUCCESS"); err != nil {
			return nil, fmt.Errorf("AnalyzeWorkbook: marking document: %w", err)
		}
	}

	log.Info().
		Str("document_id", documentID).
		Str("report_uri", reportURI).
		Int("records", len(analysis.Records)).
		Msg("workbook analyzed")

	return &Result{
		DocumentID:    documentID,
		AnalysisRunID: analysisRunID,
		OutputPath:    outputPath,
		ReportURI:     reportURI,
		Schema:        schema,
		Analysis:      analysis,
		Warnings:      warnings,
	}, nil
}

// registerDocument inserts a documents row, or returns the existing document
// when one with the same checksum is already registered. Without a run
// repository it just mints an id.
func (p *Pipeline) registerDocument(ctx context.Context, source string, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	if p.Runs == nil {
		return uuid.NewString(), nil
	}

	existing, err := p.Runs.FindDocumentByChecksum(ctx, checksum)
	if err != nil {
		return "", fmt.Errorf("AnalyzeWorkbook: checksum lookup: %w", err)
	}
	if existing != nil {
		return existing.DocumentID, nil
	}

	meta, _ := json.Marshal(map[string]string{
		"source_system": DefaultSourceSystem,
		"document_type": DefaultDocumentType,
	})
	row := &bq.DocumentRow{
		DocumentID:       uuid.NewString(),
		SourceURI:        source,
		UploadTS:         time.Now(),
		AnalysisStatus:   "REGISTERED",
		OriginalFilename: storage.ExtractFilename(source),
		FileMimeType:     DefaultFileMimeType,
		ChecksumSHA256:   checksum,
		Metadata:         bigquery.NullJSON{JSONVal: string(meta), Valid: true},
	}
	if err := p.Runs.InsertDocument(ctx, row); err != nil {
		return "", fmt.Errorf("AnalyzeWorkbook: registering document: %w", err)
	}
	return row.DocumentID, nil
}

func (p *Pipeline) startRun(ctx context.Context, documentID, reportingDate string) (string, error) {
	if p.Runs == nil {
		return "", nil
	}
	analysisRunID, err := p.Runs.StartAnalysisRun(ctx, documentID, reportingDate)
	if err != nil {
		return "", fmt.Errorf("AnalyzeWorkbook: starting run: %w", err)
	}
	return analysisRunID, nil
}

func (p *Pipeline) markRunFailed(ctx context.Context, analysisRunID string, runErr error) {
	if p.Runs == nil || analysisRunID == "" {
		return
	}
	p.Runs.MarkAnalysisRunFailed(ctx, analysisRunID, runErr)
}

func (p *Pipeline) storeMappingOutput(ctx context.Context, analysisRunID, documentID string, schema any) {
	if p.Runs == nil {
		return
	}
	log := logger.FromContext(ctx)

	raw, err := json.Marshal(schema)
	if err != nil {
		log.Error().Err(err).Msg("storeMappingOutput: marshal schema")
		return
	}
	row := &bq.MappingOutputRow{
		OutputID:      uuid.NewString(),
		AnalysisRunID: analysisRunID,
		DocumentID:    documentID,
		ModelName:     mappingModelName(p.Mapper),
		RawJSON:       bigquery.NullJSON{JSONVal: string(raw), Valid: true},
		CreatedTS:     bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true},
	}
	// Mapping output is an audit record; losing it must not fail the run.
	if err := p.Runs.InsertMappingOutput(ctx, row); err != nil {
		log.Error().Err(err).Str("analysis_run_id", analysisRunID).Msg("storeMappingOutput: insert")
	}
}

// materialize writes the fetched bytes next to the future report output.
func (p *Pipeline) materialize(source string, data []byte) (string, error) {
	dir := p.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("AnalyzeWorkbook: creating output dir: %w", err)
	}

	path := filepath.Join(dir, storage.ExtractFilename(source))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("AnalyzeWorkbook: writing workbook copy: %w", err)
	}
	return path, nil
}

func (p *Pipeline) outputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)
	if ext == "" {
		ext = ".xlsx"
	}
	return filepath.Join(filepath.Dir(inputPath), base+ReportSuffix+ext)
}
