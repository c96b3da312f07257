package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractFilename(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"gs://bucket/folder/opos.xlsx", "opos.xlsx"},
		{"gs://bucket/opos.xlsx", "opos.xlsx"},
		{"gs://bucket-only", "bucket-only"},
		{"https://example.com/files/opos.xlsx?token=abc", "opos.xlsx"},
		{"http://example.com/opos.xlsx", "opos.xlsx"},
		{"/data/exports/opos.xlsx", "opos.xlsx"},
		{"opos.xlsx", "opos.xlsx"},
	}

	for _, tt := range tests {
		if got := ExtractFilename(tt.source); got != tt.want {
			t.Errorf("ExtractFilename(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestFetchWorkbookLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")
	want := []byte("workbook bytes")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewGCSService()
	got, err := svc.FetchWorkbook(context.Background(), path)
	if err != nil {
		t.Fatalf("FetchWorkbook() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("FetchWorkbook() = %q, want %q", got, want)
	}
}

func TestFetchWorkbookLocalMissing(t *testing.T) {
	svc := NewGCSService()
	if _, err := svc.FetchWorkbook(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFetchWorkbookHTTP(t *testing.T) {
	want := []byte("remote workbook")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(want)
	}))
	defer srv.Close()

	svc := NewGCSService()
	got, err := svc.FetchWorkbook(context.Background(), srv.URL+"/opos.xlsx")
	if err != nil {
		t.Fatalf("FetchWorkbook() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("FetchWorkbook() = %q, want %q", got, want)
	}
}

func TestFetchWorkbookHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc := NewGCSService()
	if _, err := svc.FetchWorkbook(context.Background(), srv.URL+"/opos.xlsx"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchWorkbookBadGCSURI(t *testing.T) {
	svc := NewGCSService()
	if _, err := svc.FetchWorkbook(context.Background(), "gs://bucket-only"); err == nil {
		t.Fatal("expected error for URI without object path")
	}
}
