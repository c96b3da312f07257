package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kritis-ai/opos-analyzer/internal/api/handlers"
	"github.com/kritis-ai/opos-analyzer/internal/api/middleware"
	infraBQ "github.com/kritis-ai/opos-analyzer/internal/infra/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/jobs"
	"github.com/kritis-ai/opos-analyzer/internal/jobs/inmemory"
	"github.com/kritis-ai/opos-analyzer/internal/logger"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
	"github.com/kritis-ai/opos-analyzer/internal/pipeline"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
)

func main() {
	// Parse command-line flags
	var (
		port       = flag.String("port", "8080", "HTTP server port")
		bucket     = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for report uploads (or set GCS_BUCKET env)")
		outputDir  = flag.String("output-dir", "", "Directory for local workbook copies and reports (defaults to the system temp dir)")
		model      = flag.String("model", mapping.DefaultModelName, "Gemini model for semantic column mapping")
		noTracking = flag.Bool("no-tracking", false, "Disable BigQuery run tracking")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - reports stay local")
	}

	ctx := context.Background()

	// Initialize the run repository unless tracking is disabled
	var runs infraBQ.RunRepository
	if !*noTracking {
		repo, err := infraBQ.NewBigQueryRunRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()
		runs = repo
	}

	// Assemble the analysis pipeline
	pipe := &pipeline.Pipeline{
		Storage:   storage.NewGCSService(),
		Mapper:    &mapping.GeminiMapper{Model: *model},
		Runs:      runs,
		Bucket:    *bucket,
		OutputDir: *outputDir,
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	// Create job handler that runs the analysis pipeline
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		analysisJob, ok := job.(*jobs.AnalyzeWorkbookJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", analysisJob.JobID).
			Str("source", analysisJob.Source).
			Msg("Processing analysis job")

		result, err := pipe.AnalyzeWorkbook(ctx, pipeline.Request{
			Source:        analysisJob.Source,
			ReportingDate: analysisJob.ReportingDate,
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", analysisJob.JobID).
				Str("source", analysisJob.Source).
				Msg("Analysis failed")
			return err
		}

		// The queue persists the job after the handler returns, so the
		// result fields land in the job store.
		analysisJob.DocumentID = result.DocumentID
		analysisJob.AnalysisRunID = result.AnalysisRunID
		analysisJob.ReportURI = result.ReportURI

		log.Info().
			Str("job_id", analysisJob.JobID).
			Str("document_id", result.DocumentID).
			Str("report_uri", result.ReportURI).
			Msg("Analysis completed successfully")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	analysesHandler := handlers.NewAnalysesHandler(runs, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Analyses endpoints
	mux.HandleFunc("/api/analyses", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			analysesHandler.EnqueueAnalysis(w, r)
		case http.MethodGet:
			analysesHandler.ListDocuments(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Documents endpoints
	mux.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analysesHandler.ListDocuments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Path shape: /api/documents/{id}/runs
		rest := strings.TrimPrefix(r.URL.Path, "/api/documents/")
		documentID, tail, found := strings.Cut(rest, "/")
		if !found || tail != "runs" || documentID == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		analysesHandler.ListRuns(w, r, documentID)
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	health := func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
	mux.HandleFunc("/health", health)
	mux.HandleFunc("/healthz", health)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
