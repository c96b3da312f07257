package aging

import "strings"

// creditNoteTokens are document-type codes that mark a credit note even when
// the amount is not negative. DG/KG are the SAP customer / vendor credit
// memo types; the rest are the generic abbreviations seen in exports.
var creditNoteTokens = map[string]bool{
	"dg": true,
	"kg": true,
	"g2": true,
	"cn": true,
	"cr": true,
}

// creditNoteSubstrings match free-text document types.
var creditNoteSubstrings = []string{
	"gutschrift",
	"credit note",
	"credit memo",
}

// classify labels a single non-cumulative record. It is a pure function of
// the record's own fields and consults no other records, so evaluation
// order does not matter.
//
// Invoice: positive amount with a posting date. Credit: negative amount
// regardless of document type, or a non-negative amount whose document type
// is a known credit-note token. Everything else stays Unclassified and is
// reported but excluded from cluster aggregation.
func classify(rec *TransactionRecord) Classification {
	if rec.Amount == nil {
		return ClassificationUnclassified
	}
	amount := *rec.Amount

	if amount < 0 {
		return ClassificationCredit
	}
	if isCreditNoteType(rec.DocumentType) {
		return ClassificationCredit
	}
	if amount > 0 && rec.PostingDate != nil {
		return ClassificationInvoice
	}
	return ClassificationUnclassified
}

func isCreditNoteType(docType string) bool {
	t := strings.ToLower(strings.TrimSpace(docType))
	if t == "" {
		return false
	}
	if creditNoteTokens[t] {
		return true
	}
	for _, sub := range creditNoteSubstrings {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}
