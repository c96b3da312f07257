// Package handlers implements the HTTP endpoints of the analysis API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kritis-ai/opos-analyzer/internal/api/middleware"
	bq "github.com/kritis-ai/opos-analyzer/internal/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/jobs"
)

// AnalysesHandler handles analysis-related endpoints.
type AnalysesHandler struct {
	repo      bq.RunRepository
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAnalysesHandler creates a new analyses handler. repo may be nil when
// run tracking is disabled; the listing endpoints then return 503.
func NewAnalysesHandler(repo bq.RunRepository, publisher jobs.Publisher, log zerolog.Logger) *AnalysesHandler {
	return &AnalysesHandler{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// EnqueueAnalysis handles POST /api/analyses. It accepts a workbook source
// and queues an analysis job; the response carries the job id for polling.
func (h *AnalysesHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source        string `json:"source"`
		ReportingDate string `json:"reporting_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Source == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source is required")
		return
	}

	ctx := r.Context()

	job := &jobs.AnalyzeWorkbookJob{
		Source:        req.Source,
		ReportingDate: req.ReportingDate,
	}

	if err := h.publisher.PublishAnalyzeWorkbook(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source", req.Source).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// ListDocuments handles GET /api/documents.
func (h *AnalysesHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run tracking is disabled")
		return
	}

	documents, err := h.repo.ListAllDocuments(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list documents")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
	})
}

// ListRuns handles GET /api/documents/{id}/runs.
func (h *AnalysesHandler) ListRuns(w http.ResponseWriter, r *http.Request, documentID string) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run tracking is disabled")
		return
	}

	runs, err := h.repo.ListAnalysisRuns(r.Context(), documentID)
	if err != nil {
		h.log.Error().Err(err).Str("document_id", documentID).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []*bq.AnalysisRunRow{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": documentID,
		"runs":        runs,
		"count":       len(runs),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
