package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	infraBQ "github.com/kritis-ai/opos-analyzer/internal/infra/bigquery"
	"github.com/kritis-ai/opos-analyzer/internal/logger"
	"github.com/kritis-ai/opos-analyzer/internal/mapping"
	"github.com/kritis-ai/opos-analyzer/internal/pipeline"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "upload":
		runUpload(log)
	case "documents":
		runDocuments(log)
	case "runs":
		runRuns(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Open Items Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze    Analyze an open-items workbook and write the report")
	fmt.Println("  upload     Upload a file to GCS")
	fmt.Println("  documents  List registered documents")
	fmt.Println("  runs       List analysis runs for a document")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	source := fs.String("source", "", "Workbook source: local path, gs:// URI or http(s) URL")
	reportingDate := fs.String("reporting-date", "", "Reporting date as YYYY-MM-DD (defaults to today)")
	outputDir := fs.String("output-dir", "", "Directory for the report (defaults to the system temp dir)")
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for the report upload (optional)")
	model := fs.String("model", mapping.DefaultModelName, "Gemini model for semantic column mapping")
	hideProcessed := fs.Bool("hide-processed", true, "Hide the processed data sheet in the report")
	track := fs.Bool("track", false, "Record the run in BigQuery")
	fs.Parse(os.Args[2:])

	if *source == "" {
		log.Fatal().Msg("Error: -source is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var runs infraBQ.RunRepository
	if *track {
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

	result, err := pipe.AnalyzeWorkbook(ctx, pipeline.Request{
		Source:             *source,
		ReportingDate:      *reportingDate,
		HideProcessedSheet: *hideProcessed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	printResult(result)
}

func printResult(result *pipeline.Result) {
	analysis := result.Analysis
	sym := analysis.CurrencySymbol

	fmt.Println("\n=== Analysis Summary ===")
	fmt.Printf("Reporting date:  %s\n", analysis.ReportingDate)
	fmt.Printf("Rows analyzed:   %d\n", len(analysis.Records))
	fmt.Printf("Total invoiced:  %s %.2f\n", sym, analysis.Summary.TotalInvoiced)
	fmt.Printf("Total credited:  %s %.2f\n", sym, analysis.Summary.TotalCredited)
	fmt.Printf("Net outstanding: %s %.2f\n", sym, analysis.Summary.NetOutstanding)

	fmt.Println("\n=== Maturity Clusters ===")
	for _, bucket := range analysis.Buckets {
		fmt.Printf("%-13s %-11s count=%-4d amount=%s %.2f (%.2f%%)\n",
			bucket.Classification, bucket.Cluster, bucket.Count, sym, bucket.Amount, bucket.Percentage*100)
	}

	fmt.Printf("\nReport: %s\n", result.ReportURI)
	if result.AnalysisRunID != "" {
		fmt.Printf("Run ID: %s\n", result.AnalysisRunID)
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	uri, err := storage.NewGCSService().UploadFile(ctx, *bucketName, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runDocuments(log zerolog.Logger) {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)

	docs, err := infraBQ.ListAllDocuments(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list documents")
	}

	fmt.Printf("\n=== Documents (%d) ===\n", len(docs))
	for i, doc := range docs {
		fmt.Printf("\n%d. %s\n", i+1, doc.OriginalFilename)
		fmt.Printf("   ID:       %s\n", doc.DocumentID)
		fmt.Printf("   Source:   %s\n", doc.SourceURI)
		fmt.Printf("   Uploaded: %s\n", doc.UploadTS.Format(time.RFC3339))
		fmt.Printf("   Status:   %s\n", doc.AnalysisStatus)
	}
	fmt.Println()
}

func runRuns(log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	documentID := fs.String("document-id", "", "Document ID to list runs for")
	fs.Parse(os.Args[2:])

	if *documentID == "" {
		log.Fatal().Msg("Error: -document-id is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	runs, err := infraBQ.ListAnalysisRuns(ctx, *documentID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list analysis runs")
	}

	fmt.Printf("\n=== Analysis Runs (%d) ===\n", len(runs))
	for i, run := range runs {
		fmt.Printf("\n%d. %s\n", i+1, run.AnalysisRunID)
		fmt.Printf("   Started: %s\n", run.StartedTS.Format(time.RFC3339))
		fmt.Printf("   Status:  %s\n", run.Status)
		if run.ReportURI != "" {
			fmt.Printf("   Report:  %s\n", run.ReportURI)
		}
		if run.ErrorMessage != "" {
			fmt.Printf("   Error:   %s\n", run.ErrorMessage)
		}
	}
	fmt.Println()
}
