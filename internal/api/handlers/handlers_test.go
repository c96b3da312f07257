package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/jobs"
)

type mockPublisher struct {
	PublishFunc func(ctx context.Context, job *jobs.AnalyzeWorkbookJob) error
}

func (m *mockPublisher) PublishAnalyzeWorkbook(ctx context.Context, job *jobs.AnalyzeWorkbookJob) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, job)
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockJobStore struct {
	jobs map[string]*jobs.AnalyzeWorkbookJob
}

func (m *mockJobStore) SaveJob(_ context.Context, job *jobs.AnalyzeWorkbookJob) error {
	m.jobs[job.JobID] = job
	return nil
}

func (m *mockJobStore) GetJob(_ context.Context, jobID string) (*jobs.AnalyzeWorkbookJob, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

func (m *mockJobStore) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeWorkbookJob, error) {
	var result []*jobs.AnalyzeWorkbookJob
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, job)
	}
	return result, nil
}

func (m *mockJobStore) UpdateJobStatus(_ context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	return nil
}

type mockRepo struct {
	ListAllDocumentsFunc func(ctx context.Context) ([]*bq.DocumentRow, error)
	ListAnalysisRunsFunc func(ctx context.Context, documentID string) ([]*bq.AnalysisRunRow, error)
}

func (m *mockRepo) InsertDocument(context.Context, *bq.DocumentRow) error       { return nil }
func (m *mockRepo) MarkDocumentProcessed(context.Context, string, string) error { return nil }
func (m *mockRepo) StartAnalysisRun(context.Context, string, string) (string, error) {
	return "", nil
}
func (m *mockRepo) MarkAnalysisRunFailed(context.Context, string, error)           {}
func (m *mockRepo) MarkAnalysisRunSucceeded(context.Context, string, string) error { return nil }
func (m *mockRepo) InsertMappingOutput(context.Context, *bq.MappingOutputRow) error {
	return nil
}

func (m *mockRepo) ListAllDocuments(ctx context.Context) ([]*bq.DocumentRow, error) {
	if m.ListAllDocumentsFunc != nil {
		return m.ListAllDocumentsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepo) ListAnalysisRuns(ctx context.Context, documentID string) ([]*bq.AnalysisRunRow, error) {
	if m.ListAnalysisRunsFunc != nil {
		return m.ListAnalysisRunsFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockRepo) FindDocumentByChecksum(context.Context, string) (*bq.DocumentRow, error) {
	return nil, nil
}

var _ bq.RunRepository = (*mockRepo)(nil)
var _ jobs.Publisher = (*mockPublisher)(nil)
var _ jobs.JobStore = (*mockJobStore)(nil)

func TestEnqueueAnalysis(t *testing.T) {
	h := NewAnalysesHandler(nil, &mockPublisher{}, zerolog.Nop())

	body := strings.NewReader(`{"source":"gs://bucket/opos.xlsx","reporting_date":"2025-06-10"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	rec := httptest.NewRecorder()

	h.EnqueueAnalysis(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusAccepted, rec.Body)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["job_id"] != "job-1" {
		t.Errorf("job_id = %q, want job-1", resp["job_id"])
	}
	if resp["status"] != string(jobs.JobStatusPending) {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestEnqueueAnalysisValidation(t *testing.T) {
	h := NewAnalysesHandler(nil, &mockPublisher{}, zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{"empty source", `{"reporting_date":"2025-06-10"}`},
		{"malformed json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.EnqueueAnalysis(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestEnqueueAnalysisPublishFailure(t *testing.T) {
	pub := &mockPublisher{
		PublishFunc: func(context.Context, *jobs.AnalyzeWorkbookJob) error {
			return errors.New("queue full")
		},
	}
	h := NewAnalysesHandler(nil, pub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(`{"source":"opos.xlsx"}`))
	rec := httptest.NewRecorder()

	h.EnqueueAnalysis(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestListDocuments(t *testing.T) {
	repo := &mockRepo{
		ListAllDocumentsFunc: func(context.Context) ([]*bq.DocumentRow, error) {
			return []*bq.DocumentRow{
				{DocumentID: "doc-1", OriginalFilename: "opos.xlsx"},
			}, nil
		},
	}
	h := NewAnalysesHandler(repo, &mockPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()

	h.ListDocuments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Count     int               `json:"count"`
		Documents []*bq.DocumentRow `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || len(resp.Documents) != 1 {
		t.Fatalf("count = %d, documents = %d", resp.Count, len(resp.Documents))
	}
	if resp.Documents[0].DocumentID != "doc-1" {
		t.Errorf("document_id = %q", resp.Documents[0].DocumentID)
	}
}

func TestListDocumentsWithoutRepo(t *testing.T) {
	h := NewAnalysesHandler(nil, &mockPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()

	h.ListDocuments(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestListRuns(t *testing.T) {
	repo := &mockRepo{
		ListAnalysisRunsFunc: func(_ context.Context, documentID string) ([]*bq.AnalysisRunRow, error) {
			if documentID != "doc-1" {
				t.Errorf("documentID = %q, want doc-1", documentID)
			}
			return []*bq.AnalysisRunRow{{AnalysisRunID: "run-1", Status: "SUCCESS"}}, nil
		},
	}
	h := NewAnalysesHandler(repo, &mockPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/runs", nil)
	rec := httptest.NewRecorder()

	h.ListRuns(rec, req, "doc-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Count int                  `json:"count"`
		Runs  []*bq.AnalysisRunRow `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Runs[0].AnalysisRunID != "run-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetJob(t *testing.T) {
	store := &mockJobStore{jobs: map[string]*jobs.AnalyzeWorkbookJob{
		"job-1": {JobID: "job-1", Source: "opos.xlsx", Status: jobs.JobStatusCompleted},
	}}
	h := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()

	h.GetJob(rec, req, "job-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var job jobs.AnalyzeWorkbookJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if job.Status != jobs.JobStatusCompleted {
		t.Errorf("status = %s", job.Status)
	}
}

func TestGetJobNotFound(t *testing.T) {
	h := NewJobsHandler(&mockJobStore{jobs: map[string]*jobs.AnalyzeWorkbookJob{}}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	rec := httptest.NewRecorder()

	h.GetJob(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListJobsFilter(t *testing.T) {
	store := &mockJobStore{jobs: map[string]*jobs.AnalyzeWorkbookJob{
		"a": {JobID: "a", Status: jobs.JobStatusCompleted},
		"b": {JobID: "b", Status: jobs.JobStatusFailed},
	}}
	h := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?status=failed&limit=10", nil)
	rec := httptest.NewRecorder()

	h.ListJobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Count int                        `json:"count"`
		Jobs  []*jobs.AnalyzeWorkbookJob `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Jobs[0].JobID != "b" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
