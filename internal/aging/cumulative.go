package aging

import (
	"math"
	"strings"
)

// runningSumTolerance is the decimal tolerance for the running-sum match.
// Derived from real sample exports; do not tighten or loosen it without
// re-deriving it from data.
const runningSumTolerance = 0.01

// cumulativeKeywords flag subtotal rows by their document-type or reference
// text. The German terms cover the SAP G/L summary markers seen in the
// reference exports.
var cumulativeKeywords = []string{
	"carried forward",
	"saldo",
	"cumulative",
	"total",
	"subtotal",
	"debitor",
	"hauptbuch",
	"buchungskreis",
}

// runningSum accumulates the amounts of confirmed non-cumulative records.
// It is created per run and never shared between analyses, so concurrent
// runs on different workbooks cannot interfere.
type runningSum struct {
	total float64
	seen  int
}

func (r *runningSum) add(amount float64) {
	r.total += amount
	r.seen++
}

// matches reports whether amount restates the running total of all prior
// non-cumulative records. A zero total never matches: a first-row zero
// amount is not a subtotal.
func (r *runningSum) matches(amount float64) bool {
	if r.seen == 0 || math.Abs(r.total) < runningSumTolerance {
		return false
	}
	return math.Abs(amount-r.total) < runningSumTolerance
}

// detectCumulative marks the subtotal rows a source system injects between
// real transactions. Two independent signals, either sufficient: the row's
// amount equals the running total of prior non-cumulative rows, or its
// document-type / reference text contains a cumulative-indicator keyword.
//
// The pass is strictly left to right because the numeric signal depends on
// prior state. Rows flagged cumulative do not feed the running total, so a
// second restatement of the same balance is flagged as well.
func detectCumulative(records []*TransactionRecord) {
	acc := &runningSum{}

	for _, rec := range records {
		if hasCumulativeKeyword(rec) {
			rec.IsCumulative = true
			continue
		}
		if rec.Amount == nil {
			continue
		}
		if acc.matches(*rec.Amount) {
			rec.IsCumulative = true
			continue
		}
		acc.add(*rec.Amount)
	}
}

func hasCumulativeKeyword(rec *TransactionRecord) bool {
	for _, text := range []string{rec.DocumentType, rec.CustomerRef} {
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		for _, kw := range cumulativeKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
