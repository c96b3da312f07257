// Package mapping resolves the column semantics of an open-items export.
// Source files are usually German SAP exports with varying headers, so the
// mapping step identifies which column carries which semantic role before
// the deterministic engine runs.
package mapping

import (
	"fmt"
	"strings"

	"github.com/kritis-ai/opos-analyzer/internal/aging"
)

// SemanticSchema is the structured result of one mapping run: each field
// names the exact source column carrying that role, plus the detected
// currency. The json tags are the wire format the model is asked to emit.
type SemanticSchema struct {
	AmountLocalCurrency string `json:"amount_local_currency"`
	DueDate             string `json:"due_date"`
	Assignment          string `json:"assignment"`
	PostingDate         string `json:"posting_date"`
	DocumentType        string `json:"document_type"`
	CurrencyColumn      string `json:"currency_column"`
	CurrencySymbol      string `json:"currency_symbol"`
}

// Validate checks that every column the engine requires is present. The
// assignment and currency columns are best-effort and may stay empty.
func (s *SemanticSchema) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"amount_local_currency": s.AmountLocalCurrency,
		"due_date":              s.DueDate,
		"posting_date":          s.PostingDate,
		"document_type":         s.DocumentType,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("semantic schema incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// ColumnMap converts the schema into the engine's column binding.
func (s *SemanticSchema) ColumnMap() *aging.ColumnMap {
	return &aging.ColumnMap{
		Amount:         s.AmountLocalCurrency,
		DueDate:        s.DueDate,
		PostingDate:    s.PostingDate,
		DocumentType:   s.DocumentType,
		CustomerRef:    s.Assignment,
		CurrencySymbol: normalizeCurrencySymbol(s.CurrencySymbol),
	}
}

// currencySymbols maps ISO currency codes to their display symbols for the
// case where the model answers with the code instead of the symbol.
var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "Fr",
	"JPY": "¥",
}

func normalizeCurrencySymbol(s string) string {
	s = strings.TrimSpace(s)
	if symbol, ok := currencySymbols[strings.ToUpper(s)]; ok {
		return symbol
	}
	return s
}
