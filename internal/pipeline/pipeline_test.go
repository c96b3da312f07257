package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
)

// mockStorage implements StorageService with overridable behavior.
type mockStorage struct {
	FetchWorkbookFunc func(ctx context.Context, source string) ([]byte, error)
	UploadFileFunc    func(ctx context.Context, bucketName, objectName, filePath string) (string, error)
}

func (m *mockStorage) FetchWorkbook(ctx context.Context, source string) ([]byte, error) {
	if m.FetchWorkbookFunc != nil {
		return m.FetchWorkbookFunc(ctx, source)
	}
	return os.ReadFile(source)
}

func (m *mockStorage) UploadFile(ctx context.Context, bucketName, objectName, filePath string) (string, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, bucketName, objectName, filePath)
	}
	return "https://storage.googleapis.com/" + bucketName + "/" + objectName, nil
}

// mockRunRepository records run-tracking calls.
type mockRunRepository struct {
	documents      []*bq.DocumentRow
	mappingOutputs []*bq.MappingOutputRow

	startedRuns   []string
	failedRuns    []string
	succeededRuns map[string]string
	processedDocs map[string]string

	FindDocumentByChecksumFunc func(ctx context.Context, checksum string) (*bq.DocumentRow, error)
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{
		succeededRuns: make(map[string]string),
		processedDocs: make(map[string]string),
	}
}

func (m *mockRunRepository) InsertDocument(_ context.Context, row *bq.DocumentRow) error {
	m.documents = append(m.documents, row)
	return nil
}

func (m *mockRunRepository) MarkDocumentProcessed(_ context.Context, documentID, status string) error {
	m.processedDocs[documentID] = status
	return nil
}

func (m *mockRunRepository) StartAnalysisRun(_ context.Context, documentID, _ string) (string, error) {
	runID := "run-" + documentID
	m.startedRuns = append(m.startedRuns, runID)
	return runID, nil
}

func (m *mockRunRepository) MarkAnalysisRunFailed(_ context.Context, analysisRunID string, _ error) {
	m.failedRuns = append(m.failedRuns, analysisRunID)
}

func (m *mockRunRepository) MarkAnalysisRunSucceeded(_ context.Context, analysisRunID, reportURI string) error {
	m.succeededRuns[analysisRunID] = reportURI
	return nil
}

func (m *mockRunRepository) InsertMappingOutput(_ context.Context, row *bq.MappingOutputRow) error {
	m.mappingOutputs = append(m.mappingOutputs, row)
	return nil
}

func (m *mockRunRepository) ListAllDocuments(_ context.Context) ([]*bq.DocumentRow, error) {
	return m.documents, nil
}

func (m *mockRunRepository) ListAnalysisRuns(_ context.Context, _ string) ([]*bq.AnalysisRunRow, error) {
	return nil, nil
}

func (m *mockRunRepository) FindDocumentByChecksum(ctx context.Context, checksum string) (*bq.DocumentRow, error) {
	if m.FindDocumentByChecksumFunc != nil {
		return m.FindDocumentByChecksumFunc(ctx, checksum)
	}
	return nil, nil
}

// errorMapper always fails column resolution.
type errorMapper struct{}

func (errorMapper) MapColumns(context.Context, []string, map[string]any) (*mapping.SemanticSchema, error) {
	return nil, errors.New("no mapping for you")
}

func staticMapper() *mapping.StaticMapper {
	return &mapping.StaticMapper{Schema: mapping.SemanticSchema{
		AmountLocalCurrency: "Betrag in Hauswährung",
		DueDate:             "Nettofälligkeit",
		Assignment:          "Zuordnung",
		PostingDate:         "Buchungsdatum",
		DocumentType:        "Belegart",
		CurrencySymbol:      "€",
	}}
}

func writeInputWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Opos"); err != nil {
		t.Fatal(err)
	}
	rows := [][]any{
		{"Zuordnung", "Belegart", "Buchungsdatum", "Nettofälligkeit", "Betrag in Hauswährung"},
		{"2025/001", "RV", "2025-04-01", "2025-06-25", "1000,00"},
		{"2025/002", "DG", "2025-04-10", "2025-04-26", "-100,00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Opos", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "opos.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeWorkbookLocal(t *testing.T) {
	inputPath := writeInputWorkbook(t)

	p := &Pipeline{
		Storage:   &mockStorage{},
		Mapper:    staticMapper(),
		OutputDir: t.TempDir(),
	}

	res, err := p.AnalyzeWorkbook(context.Background(), Request{
		Source:             inputPath,
		ReportingDate:      "2025-06-10",
		HideProcessedSheet: true,
	})
	if err != nil {
		t.Fatalf("AnalyzeWorkbook() error = %v", err)
	}

	if res.DocumentID == "" {
		t.Error("empty document id")
	}
	if res.AnalysisRunID != "" {
		t.Errorf("run id = %q, want empty without run repository", res.AnalysisRunID)
	}
	if res.Analysis == nil || len(res.Analysis.Records) != 2 {
		t.Fatalf("analysis records = %v, want 2", res.Analysis)
	}
	if res.Analysis.Summary.TotalInvoiced != 1000 {
		t.Errorf("total invoiced = %v, want 1000", res.Analysis.Summary.TotalInvoiced)
	}

	if filepath.Base(res.OutputPath) != "opos_analyzed.xlsx" {
		t.Errorf("output path = %q", res.OutputPath)
	}
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Errorf("output artifact missing: %v", err)
	}
	if res.ReportURI != res.OutputPath {
		t.Errorf("report URI = %q, want local path without bucket", res.ReportURI)
	}
}

func TestAnalyzeWorkbookTracksRun(t *testing.T) {
	inputPath := writeInputWorkbook(t)
	repo := newMockRunRepository()

	p := &Pipeline{
		Storage:   &mockStorage{},
		Mapper:    staticMapper(),
		Runs:      repo,
		Bucket:    "reports-bucket",
		OutputDir: t.TempDir(),
	}

	res, err := p.AnalyzeWorkbook(context.Background(), Request{Source: inputPath, ReportingDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("AnalyzeWorkbook() error = %v", err)
	}

	if len(repo.documents) != 1 {
		t.Fatalf("registered documents = %d, want 1", len(repo.documents))
	}
	doc := repo.documents[0]
	if doc.ChecksumSHA256 == "" || doc.OriginalFilename != "opos.xlsx" {
		t.Errorf("document row = %+v", doc)
	}

	if len(repo.startedRuns) != 1 {
		t.Fatalf("started runs = %d, want 1", len(repo.startedRuns))
	}
	runID := repo.startedRuns[0]
	if res.AnalysisRunID != runID {
		t.Errorf("result run id = %q, want %q", res.AnalysisRunID, runID)
	}

	wantURI := "https://storage.googleapis.com/reports-bucket/opos_analyzed.xlsx"
	if repo.succeededRuns[runID] != wantURI {
		t.Errorf("succeeded run URI = %q, want %q", repo.succeededRuns[runID], wantURI)
	}
	if res.ReportURI != wantURI {
		t.Errorf("result report URI = %q, want %q", res.ReportURI, wantURI)
	}

	if len(repo.mappingOutputs) != 1 {
		t.Fatalf("mapping outputs = %d, want 1", len(repo.mappingOutputs))
	}
	if repo.mappingOutputs[0].ModelName != "static" {
		t.Errorf("mapping output model = %q", repo.mappingOutputs[0].ModelName)
	}

	if repo.processedDocs[doc.DocumentID] != "SUCCESS" {
		t.Errorf("document status = %q, want SUCCESS", repo.processedDocs[doc.DocumentID])
	}
	if len(repo.failedRuns) != 0 {
		t.Errorf("failed runs = %v, want none", repo.failedRuns)
	}
}

func TestAnalyzeWorkbookReusesDocumentByChecksum(t *testing.T) {
	inputPath := writeInputWorkbook(t)
	repo := newMockRunRepository()
	repo.FindDocumentByChecksumFunc = func(_ context.Context, _ string) (*bq.DocumentRow, error) {
		return &bq.DocumentRow{DocumentID: "existing-doc"}, nil
	}

	p := &Pipeline{
		Storage:   &mockStorage{},
		Mapper:    staticMapper(),
		Runs:      repo,
		OutputDir: t.TempDir(),
	}

	res, err := p.AnalyzeWorkbook(context.Background(), Request{Source: inputPath})
	if err != nil {
		t.Fatalf("AnalyzeWorkbook() error = %v", err)
	}
	if res.DocumentID != "existing-doc" {
		t.Errorf("document id = %q, want existing-doc", res.DocumentID)
	}
	if len(repo.documents) != 0 {
		t.Errorf("inserted %d documents, want 0", len(repo.documents))
	}
}

func TestAnalyzeWorkbookMappingFailureMarksRun(t *testing.T) {
	inputPath := writeInputWorkbook(t)
	repo := newMockRunRepository()

	p := &Pipeline{
		Storage:   &mockStorage{},
		Mapper:    errorMapper{},
		Runs:      repo,
		OutputDir: t.TempDir(),
	}

	if _, err := p.AnalyzeWorkbook(context.Background(), Request{Source: inputPath}); err == nil {
		t.Fatal("expected mapping error")
	}
	if len(repo.failedRuns) != 1 {
		t.Fatalf("failed runs = %d, want 1", len(repo.failedRuns))
	}
	if len(repo.succeededRuns) != 0 {
		t.Error("run marked succeeded despite failure")
	}
}

func TestAnalyzeWorkbookBadReportingDate(t *testing.T) {
	inputPath := writeInputWorkbook(t)

	p := &Pipeline{
		Storage:   &mockStorage{},
		Mapper:    staticMapper(),
		OutputDir: t.TempDir(),
	}

	if _, err := p.AnalyzeWorkbook(context.Background(), Request{Source: inputPath, ReportingDate: "June 10th"}); err == nil {
		t.Fatal("expected error for malformed reporting date")
	}
}
