// Command worker analyzes every open-items workbook in a directory. It
// queues one job per workbook and processes them with the bounded worker
// pool of the in-memory queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	infraBQ "github.com/kritis-ai/opos-analyzer/internal/infra/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/jobs"
	"github.com/kritis-ai/opos-analyzer/internal/jobs/inmemory"
	"github.com/kritis-ai/opos-analyzer/internal/logger"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
	"github.com/kritis-ai/opos-analyzer/internal/pipeline"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
)

func main() {
	var (
		inputDir      = flag.String("input-dir", "", "Directory with workbooks to analyze (required)")
		outputDir     = flag.String("output-dir", "", "Directory for reports (defaults to the input directory)")
		reportingDate = flag.String("reporting-date", "", "Reporting date as YYYY-MM-DD (defaults to today)")
		bucket        = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for report uploads (or set GCS_BUCKET env)")
		model         = flag.String("model", mapping.DefaultModelName, "Gemini model for semantic column mapping")
		noTracking    = flag.Bool("no-tracking", false, "Disable BigQuery run tracking")
	)
	flag.Parse()

	log := logger.New()

	if *inputDir == "" {
		log.Fatal().Msg("Error: -input-dir is required")
	}
	if *outputDir == "" {
		*outputDir = *inputDir
	}

	sources, err := findWorkbooks(*inputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to scan input directory")
	}
	if len(sources) == 0 {
		log.Info().Str("input_dir", *inputDir).Msg("No workbooks found, nothing to do")
		return
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	var runs infraBQ.RunRepository
	if !*noTracking {
		repo, err := infraBQ.NewBigQueryRunRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()
		runs = repo
	}

	pipe := &pipeline.Pipeline{
		Storage:   storage.NewGCSService(),
		Mapper:    &mapping.GeminiMapper{Model: *model},
		Runs:      runs,
		Bucket:    *bucket,
		OutputDir: *outputDir,
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(sources), jobStore)

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	handler := func(ctx context.Context, job jobs.Job) error {
		analysisJob, ok := job.(*jobs.AnalyzeWorkbookJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", analysisJob.JobID).
			Str("source", analysisJob.Source).
			Msg("Analyzing workbook")

		result, err := pipe.AnalyzeWorkbook(ctx, pipeline.Request{
			Source:        analysisJob.Source,
			ReportingDate: analysisJob.ReportingDate,
		})
		if err != nil {
			log.Error().Err(err).Str("source", analysisJob.Source).Msg("Analysis failed")
			// The queue retries until RetryCount reaches MaxRetries; only
			// the terminal failure counts the job as finished.
			if analysisJob.RetryCount >= analysisJob.MaxRetries {
				mu.Lock()
				failed++
				mu.Unlock()
				wg.Done()
			}
			return err
		}

		analysisJob.DocumentID = result.DocumentID
		analysisJob.AnalysisRunID = result.AnalysisRunID
		analysisJob.ReportURI = result.ReportURI

		log.Info().
			Str("source", analysisJob.Source).
			Str("report_uri", result.ReportURI).
			Msg("Workbook analyzed")

		wg.Done()
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("workbooks", len(sources)).Str("input_dir", *inputDir).Msg("Queueing workbooks")

	for _, source := range sources {
		wg.Add(1)
		job := &jobs.AnalyzeWorkbookJob{
			Source:        source,
			ReportingDate: *reportingDate,
		}
		if err := jobQueue.PublishAnalyzeWorkbook(ctx, job); err != nil {
			wg.Done()
			log.Error().Err(err).Str("source", source).Msg("Failed to queue workbook")
		}
	}

	// Finish either when every job ran or on an interrupt.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
	case <-quit:
		log.Info().Msg("Interrupted, shutting down...")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(sources)).Msg("Batch finished with failures")
		os.Exit(1)
	}
	log.Info().Int("total", len(sources)).Msg("Batch finished")
}

// findWorkbooks lists the xlsx files directly inside dir, skipping reports
// from earlier runs and Excel lock files.
func findWorkbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		if strings.HasPrefix(name, "~$") {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.HasSuffix(base, pipeline.ReportSuffix) {
			continue
		}
		sources = append(sources, filepath.Join(dir, name))
	}
	return sources, nil
}
