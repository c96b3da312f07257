// Package bigquery implements the run-tracking repositories on top of
// BigQuery: registered documents, analysis runs and raw mapping outputs.
package bigquery

import "os"

const (
	documentsTable      = "documents"
	analysisRunsTable   = "analysis_runs"
	mappingOutputsTable = "mapping_outputs"
)

var (
	projectID = envOr("OPOS_BQ_PROJECT", "kritis-opos-prod")
	datasetID = envOr("OPOS_BQ_DATASET", "opos")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
