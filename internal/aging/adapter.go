package aging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateLayouts are the accepted date formats, tried in order. Covers ISO
// dates, spreadsheet datetime strings, and the dotted / slashed day-first
// forms common in European A/R exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"01-02-06",
}

// buildRecords normalizes the raw table into one TransactionRecord per
// retained row, preserving source order. Rows whose mapped cells are all
// blank are dropped; cell-level parse failures become warnings, never
// errors. The column map must already be validated against the header.
func buildRecords(table *Table, m *ColumnMap) ([]*TransactionRecord, []ParseWarning, int) {
	records := make([]*TransactionRecord, 0, len(table.Rows))
	var warnings []ParseWarning
	dropped := 0

	for i, row := range table.Rows {
		if mappedCellsBlank(row, m) {
			dropped++
			continue
		}

		rec := &TransactionRecord{
			RowIndex:       i,
			DocumentType:   cellText(row[m.DocumentType]),
			Classification: ClassificationUnclassified,
			Cluster:        ClusterUnassigned,
		}
		if m.CustomerRef != "" {
			rec.CustomerRef = cellText(row[m.CustomerRef])
		}

		amount, err := parseAmount(row[m.Amount])
		if err != nil {
			warnings = append(warnings, ParseWarning{
				RowIndex: i,
				Key:      KeyAmount,
				Column:   m.Amount,
				Value:    cellText(row[m.Amount]),
				Message:  err.Error(),
			})
		} else {
			rec.Amount = amount
		}

		for _, dc := range []struct {
			key    SemanticKey
			column string
			dst    **civil.Date
		}{
			{KeyPostingDate, m.PostingDate, &rec.PostingDate},
			{KeyDueDate, m.DueDate, &rec.DueDate},
		} {
			d, err := parseDate(row[dc.column])
			if err != nil {
				warnings = append(warnings, ParseWarning{
					RowIndex: i,
					Key:      dc.key,
					Column:   dc.column,
					Value:    cellText(row[dc.column]),
					Message:  err.Error(),
				})
				continue
			}
			*dc.dst = d
		}

		records = append(records, rec)
	}

	return records, warnings, dropped
}

// mappedCellsBlank reports whether every mapped cell of the row is blank.
func mappedCellsBlank(row RawRow, m *ColumnMap) bool {
	for _, b := range m.bindings() {
		if b.Column == "" {
			continue
		}
		if cellText(row[b.Column]) != "" {
			return false
		}
	}
	return true
}

// cellText renders a cell value as trimmed text for keyword matching and
// warning messages.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.Format("2006-01-02")
	case civil.Date:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// parseAmount converts a cell into a signed decimal. Blank cells yield
// (nil, nil): an absent amount is not a parse failure. String amounts
// tolerate both locale conventions ("1.234,56" and "1,234.56"), plain
// forms, and the trailing minus some SAP exports emit ("123,45-").
func parseAmount(v any) (*float64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f := val
		return &f, nil
	case int:
		f := float64(val)
		return &f, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		f, err := parseAmountString(s)
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("unsupported amount type %T", v)
	}
}

func parseAmountString(s string) (float64, error) {
	neg := false
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the later one is the decimal separator.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Comma only: decimal separator unless it groups thousands.
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// Single comma with exactly three trailing digits is ambiguous;
			// the reference exports use it for thousands.
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if neg {
		f = -f
	}
	return f, nil
}

// parseDate converts a cell into a date. Blank cells yield (nil, nil).
func parseDate(v any) (*civil.Date, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		d := civil.DateOf(val)
		return &d, nil
	case civil.Date:
		d := val
		return &d, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				d := civil.DateOf(t)
				return &d, nil
			}
		}
		return nil, fmt.Errorf("unrecognized date format")
	default:
		return nil, fmt.Errorf("unsupported date type %T", v)
	}
}
