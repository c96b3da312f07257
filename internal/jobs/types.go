// Package jobs defines the asynchronous job model for workbook analyses.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAnalyzeWorkbook represents one workbook analysis job.
	JobTypeAnalyzeWorkbook JobType = "analyze_workbook"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// AnalyzeWorkbookJob is one queued workbook analysis.
type AnalyzeWorkbookJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Source is the workbook location: gs:// URI, http(s) URL or local path.
	Source string `json:"source"`

	// ReportingDate is the ISO date the analysis is anchored to; empty
	// means today.
	ReportingDate string `json:"reporting_date,omitempty"`

	// DocumentID is filled in once the document is registered.
	DocumentID string `json:"document_id,omitempty"`

	// AnalysisRunID is filled in once the run is started.
	AnalysisRunID string `json:"analysis_run_id,omitempty"`

	// ReportURI points at the finished artifact on success.
	ReportURI string `json:"report_uri,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *AnalyzeWorkbookJob) GetID() string {
	return j.JobID
}

func (j *AnalyzeWorkbookJob) GetType() JobType {
	return JobTypeAnalyzeWorkbook
}

func (j *AnalyzeWorkbookJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction allows swapping the in-memory queue for Cloud Tasks or
// Pub/Sub without touching callers.
type Publisher interface {
	// PublishAnalyzeWorkbook enqueues a workbook analysis job.
	PublishAnalyzeWorkbook(ctx context.Context, job *AnalyzeWorkbookJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue. The handler is called
	// for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status, so job state outlives the
// queue's channel buffer.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AnalyzeWorkbookJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*AnalyzeWorkbookJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeWorkbookJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// DocumentID filters jobs by document ID.
	DocumentID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
