// Package storage acquires input workbooks and publishes report artifacts.
// A workbook source may be a gs:// URI, an http(s) URL, or a local path.
package storage

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Service provides the storage operations of the analysis pipeline.
// The interface enables mocking and testing of storage functionality.
type Service interface {
	// FetchWorkbook downloads the workbook bytes from the given source.
	FetchWorkbook(ctx context.Context, source string) ([]byte, error)

	// UploadFile uploads a local file to a storage bucket under the given
	// object name and returns its public URL.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) (string, error)
}

// ExtractFilename returns the file name part of a workbook source.
// e.g. "gs://bucket/folder/opos.xlsx" -> "opos.xlsx".
func ExtractFilename(source string) string {
	switch {
	case strings.HasPrefix(source, "gs://"):
		trimmed := strings.TrimPrefix(source, "gs://")
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 {
			return trimmed
		}
		return path.Base(parts[1])
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		u, err := url.Parse(source)
		if err != nil {
			return path.Base(source)
		}
		return path.Base(u.Path)
	default:
		return filepath.Base(source)
	}
}
