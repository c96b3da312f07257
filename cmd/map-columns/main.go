// Command map-columns probes the semantic column mapping for a workbook
// without running the full analysis. Useful when a new export layout maps
// badly and the raw model output needs inspecting.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/kritis-ai/opos-analyzer/internal/mapping"
	"github.com/kritis-ai/opos-analyzer/internal/workbook"
)

func main() {
	path := flag.String("file", "", "Path to a local xlsx workbook (required)")
	model := flag.String("model", mapping.DefaultModelName, "Gemini model to probe")
	flag.Parse()

	if *path == "" {
		log.Fatal("error: -file is required")
	}

	if err := run(*path, *model); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func run(path, model string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	table, err := workbook.ReadTable(path)
	if err != nil {
		return fmt.Errorf("reading workbook: %w", err)
	}

	fmt.Printf("Sheet: %s\n", table.SheetName)
	fmt.Printf("Columns (%d):\n", len(table.Header))
	for _, col := range table.Header {
		fmt.Printf("  - %s\n", col)
	}

	var sampleRow map[string]any
	if len(table.Rows) > 0 {
		sampleRow = table.Rows[0]
	}

	mapper := &mapping.GeminiMapper{Model: model}
	schema, err := mapper.MapColumns(ctx, table.Header, sampleRow)
	if err != nil {
		return fmt.Errorf("mapping columns: %w", err)
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	fmt.Printf("\nResolved schema:\n%s\n", out)
	return nil
}
