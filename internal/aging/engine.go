package aging

import (
	"time"

	"cloud.google.com/go/civil"
)

// Options are the run-wide parameters of one analysis.
type Options struct {
	// ReportingDate anchors the maturity calculation. The zero value falls
	// back to today; tests and reproducible runs should set it explicitly.
	ReportingDate civil.Date

	// Brackets overrides the maturity bracket table. Nil uses the fixed
	// default brackets.
	Brackets []Bracket
}

func (o *Options) fillDefaults() {
	if !o.ReportingDate.IsValid() {
		o.ReportingDate = civil.DateOf(time.Now())
	}
	if o.Brackets == nil {
		o.Brackets = defaultBrackets()
	}
}

// Analyze runs the full engine over the table: adapter, cumulative
// detection, classification, maturity and cluster assignment, aggregation.
// One synchronous pass, no I/O, no shared state between calls.
//
// A *SchemaError aborts the run before record processing with no partial
// result. Cell-level problems are returned as warnings next to a complete
// result.
func Analyze(table *Table, columnMap *ColumnMap, opts Options) (*AnalysisResult, []ParseWarning, error) {
	if err := columnMap.Validate(table.Header); err != nil {
		return nil, nil, err
	}
	if len(table.Rows) == 0 {
		return nil, nil, &SchemaError{Reason: "table has no data rows"}
	}

	opts.fillDefaults()

	records, warnings, dropped := buildRecords(table, columnMap)

	detectCumulative(records)

	for _, rec := range records {
		if rec.IsCumulative {
			continue
		}
		rec.Classification = classify(rec)
	}

	computeMaturity(records, &opts)

	buckets, summary := aggregate(records, dropped)

	return &AnalysisResult{
		ReportingDate:  opts.ReportingDate,
		CurrencySymbol: columnMap.CurrencySymbol,
		Records:        records,
		Buckets:        buckets,
		Summary:        summary,
	}, warnings, nil
}
