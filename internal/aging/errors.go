package aging

import (
	"fmt"
	"strings"
)

// SchemaError is fatal: a required semantic key has no resolvable source
// column, or the table has no data rows. It aborts the run before any record
// processing.
type SchemaError struct {
	MissingKeys []SemanticKey
	Reason      string
}

func (e *SchemaError) Error() string {
	if len(e.MissingKeys) > 0 {
		keys := make([]string, len(e.MissingKeys))
		for i, k := range e.MissingKeys {
			keys[i] = string(k)
		}
		return fmt.Sprintf("schema error: unresolvable semantic keys: %s", strings.Join(keys, ", "))
	}
	if e.Reason != "" {
		return "schema error: " + e.Reason
	}
	return "schema error"
}

// ParseWarning records a cell that could not be parsed into its expected
// type. The affected field is left absent and the record continues through
// the pipeline; warnings are returned alongside the result so callers can
// surface a data-quality report.
type ParseWarning struct {
	RowIndex int         `json:"row_index"`
	Key      SemanticKey `json:"key"`
	Column   string      `json:"column"`
	Value    string      `json:"value"`
	Message  string      `json:"message"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("row %d, column %q (%s): %s: %q", w.RowIndex, w.Column, w.Key, w.Message, w.Value)
}
