package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_documents.sql", true, "0001", "create_documents"},
		{"0002_create_analysis_runs.sql", true, "0002", "create_analysis_runs"},
		{"001_short_version.sql", false, "", ""},
		{"0001_missing_extension", false, "", ""},
		{"0001.sql", false, "", ""},
		{"notes_0001_wrong_order.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationFilePattern.FindStringSubmatch(tt.filename)
			if tt.valid {
				if matches == nil {
					t.Fatalf("%s did not match", tt.filename)
				}
				if matches[1] != tt.version || matches[2] != tt.name {
					t.Errorf("parsed (%s, %s), want (%s, %s)", matches[1], matches[2], tt.version, tt.name)
				}
			} else if matches != nil {
				t.Errorf("%s matched unexpectedly: %v", tt.filename, matches)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()

	write := func(name, sql string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("0002_second.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.analysis_runs` (analysis_run_id STRING);")
	write("0001_first.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.documents` (document_id STRING);")
	write("README.md", "not a migration")

	migrations, err := readMigrations(dir, "proj", "opos")
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("migrations = %d, want 2", len(migrations))
	}
	// Sorted by version regardless of directory order.
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("versions = %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "first" {
		t.Errorf("name = %q", migrations[0].Name)
	}

	want := "CREATE TABLE `proj.opos.documents` (document_id STRING);"
	if migrations[0].SQL != want {
		t.Errorf("SQL = %q, want %q", migrations[0].SQL, want)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Error("checksums should be non-empty and distinct")
	}
}

func TestReadMigrationsMissingDir(t *testing.T) {
	if _, err := readMigrations(filepath.Join(t.TempDir(), "absent"), "p", "d"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
