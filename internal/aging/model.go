// Package aging implements the deterministic A/R open-items aging engine.
//
// The engine takes a raw table plus a semantic column map and produces an
// aging report: cumulative subtotal rows are flagged, the remaining rows are
// classified as invoices or credits, each classified row gets a maturity
// (days until / past its due date relative to a reporting date) and a
// maturity cluster, and the result is aggregated into per-cluster totals.
// Identical input always produces an identical result; the only time input
// is the explicit reporting date.
package aging

import (
	"cloud.google.com/go/civil"
)

// SemanticKey identifies one of the fixed semantic columns the engine knows
// about. The upstream mapping step resolves arbitrary source headers (often
// German SAP exports) onto these keys; the engine never inspects headers
// itself.
type SemanticKey string

const (
	KeyAmount       SemanticKey = "amount"
	KeyDueDate      SemanticKey = "due_date"
	KeyPostingDate  SemanticKey = "posting_date"
	KeyDocumentType SemanticKey = "document_type"
	KeyCustomerRef  SemanticKey = "customer_ref"
)

// ColumnMap binds each semantic key to the actual column name in the source
// table. It is produced by an external mapping step and validated once per
// run via Validate before any record processing happens.
type ColumnMap struct {
	Amount       string // required
	DueDate      string // required
	PostingDate  string // required
	DocumentType string // required
	CustomerRef  string // optional (assignment / reference field)

	// CurrencySymbol is carried through to the result unchanged; the engine
	// assumes a single currency per table.
	CurrencySymbol string
}

// binding pairs a semantic key with its mapped column name and whether the
// engine can run without it.
type binding struct {
	Key      SemanticKey
	Column   string
	Required bool
}

func (m *ColumnMap) bindings() []binding {
	return []binding{
		{KeyAmount, m.Amount, true},
		{KeyDueDate, m.DueDate, true},
		{KeyPostingDate, m.PostingDate, true},
		{KeyDocumentType, m.DocumentType, true},
		{KeyCustomerRef, m.CustomerRef, false},
	}
}

// Validate checks that every required semantic key is mapped to a column
// that exists in the table header. It returns a *SchemaError naming all
// missing keys at once, so a bad mapping fails before row one instead of at
// row five hundred.
func (m *ColumnMap) Validate(header []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []SemanticKey
	for _, b := range m.bindings() {
		if b.Column == "" {
			if b.Required {
				missing = append(missing, b.Key)
			}
			continue
		}
		if !present[b.Column] {
			missing = append(missing, b.Key)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{MissingKeys: missing}
	}
	return nil
}

// RawRow is one source row: column name to untyped cell value. Values may be
// string, float64, int, time.Time, civil.Date, or nil/"" for blank cells.
// Rows are read once and never mutated.
type RawRow map[string]any

// Table is the raw tabular input: an ordered header plus ordered rows.
type Table struct {
	SheetName string
	Header    []string
	Rows      []RawRow
}

// Classification labels a non-cumulative record.
type Classification string

const (
	ClassificationInvoice      Classification = "INVOICE"
	ClassificationCredit       Classification = "CREDIT"
	ClassificationUnclassified Classification = "UNCLASSIFIED"
)

// Cluster is a maturity bracket label. The values double as the display
// labels on the rendered report.
type Cluster string

const (
	ClusterNotMature  Cluster = "Not mature"
	Cluster1To30      Cluster = "1-30 days"
	Cluster31To60     Cluster = "31-60 days"
	ClusterOver60     Cluster = ">60 days"
	ClusterUnassigned Cluster = "Unassigned"
)

// TransactionRecord is the engine's normalized unit, one per retained source
// row. The adapter creates it; each later stage only sets additional fields.
// RowIndex is the zero-based position in the source table and stays stable
// end to end so report rows can be traced back to the export.
type TransactionRecord struct {
	RowIndex int

	Amount       *float64
	PostingDate  *civil.Date
	DueDate      *civil.Date
	DocumentType string
	CustomerRef  string

	IsCumulative   bool
	Classification Classification
	MaturityDays   *int
	Cluster        Cluster
}

// ClusterBucket aggregates the classified records of one (classification,
// cluster) combination.
type ClusterBucket struct {
	Classification Classification `json:"classification"`
	Cluster        Cluster        `json:"cluster"`
	Count          int            `json:"count"`
	Amount         float64        `json:"amount"`
	// Percentage is this bucket's share of the classification total, in
	// [0, 1]. Zero when the classification total is zero.
	Percentage float64 `json:"percentage"`
	// RowIndices lists the contributing source rows, ascending.
	RowIndices []int `json:"row_indices"`
}

// Summary holds the run-wide totals. Credits keep their sign, so
// TotalCredited is <= 0 and NetOutstanding = TotalInvoiced + TotalCredited.
type Summary struct {
	TotalInvoiced  float64 `json:"total_invoiced"`
	TotalCredited  float64 `json:"total_credited"`
	NetOutstanding float64 `json:"net_outstanding"`

	InvoiceCount      int `json:"invoice_count"`
	CreditCount       int `json:"credit_count"`
	CumulativeCount   int `json:"cumulative_count"`
	UnclassifiedCount int `json:"unclassified_count"`
	DroppedEmptyRows  int `json:"dropped_empty_rows"`
}

// AnalysisResult is the engine's output. Records preserves the original row
// order for a full audit trail; Buckets holds the four fixed clusters per
// classification (invoice first, then credit) plus an Unassigned bucket
// whenever a classified record lacks a due date, so bucket amounts always
// sum to the classification total.
type AnalysisResult struct {
	ReportingDate  civil.Date           `json:"reporting_date"`
	CurrencySymbol string               `json:"currency_symbol"`
	Records        []*TransactionRecord `json:"records"`
	Buckets        []ClusterBucket      `json:"buckets"`
	Summary        Summary              `json:"summary"`
}
