package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/kritis-ai/opos-analyzer/internal/logger"
	"github.com/kritis-ai/opos-analyzer/internal/storage"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	var (
		bucketName string
		objectName string
		filePath   string
	)

	flag.StringVar(&bucketName, "bucket", "", "GCS bucket name (required)")
	flag.StringVar(&objectName, "object", "", "GCS object name (optional; defaults to file name)")
	flag.StringVar(&filePath, "file", "", "Path to local workbook (required)")
	flag.Parse()

	if bucketName == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-workbook -bucket BUCKET_NAME -file /path/to/file.xlsx [-object OBJECT_NAME]")
	}

	if objectName == "" {
		objectName = filepath.Base(filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Str("file", filePath).
		Msg("Uploading workbook to GCS")

	uri, err := storage.NewGCSService().UploadFile(ctx, bucketName, objectName, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", filePath, uri)
}
