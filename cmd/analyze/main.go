// Command analyze runs a single workbook through the analysis pipeline
// without run tracking. Meant for local one-off analyses; the CLI and the
// API cover the tracked paths.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/kritis-ai/opos-analyzer/internal/logger"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
	"github.com/kritis-ai/opos-analyzer/internal/pipeline"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	source := flag.String("source", "", "Workbook source: local path, gs:// URI or http(s) URL")
	reportingDate := flag.String("reporting-date", "", "Reporting date as YYYY-MM-DD (defaults to today)")
	outputDir := flag.String("output-dir", "", "Directory for the report (defaults to the system temp dir)")
	flag.Parse()

	if *source == "" {
		log.Fatal().Msg("Error: -source is required")
	}

	// Create context with timeout so the command doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("source", *source).Msg("Starting analysis")

	pipe := &pipeline.Pipeline{
		Storage:   storage.NewGCSService(),
		Mapper:    &mapping.GeminiMapper{},
		OutputDir: *outputDir,
	}

	result, err := pipe.AnalyzeWorkbook(ctx, pipeline.Request{
		Source:             *source,
		ReportingDate:      *reportingDate,
		HideProcessedSheet: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	fmt.Printf("Analysis completed successfully. Report: %s\n", result.ReportURI)
}
