package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kritis-ai/opos-analyzer/internal/aging"
)

const analysisSheetName = "Analysis"

// maxSheetNameLen is the xlsx hard limit on sheet name length.
const maxSheetNameLen = 31

var analysisHeader = []string{
	"Sum of Invoice Amounts",
	"Sum of Credit Amounts",
	"(Invoice) Maturity Cluster",
	"Total Amount",
	"Percentage",
	"(Credit) Maturity Cluster",
	"Total Amount",
	"Percentage",
	"Cumulative Row Numbers",
	"Invoice Row Numbers",
	"Credit Row Numbers",
}

var processedHeader = []string{"Cumulative", "Invoice", "Credit", "Due Date", "Maturity", "Cluster"}

// WriteReport takes the original workbook at inputPath and writes the report
// artifact to outputPath: the untouched original sheets, an Analysis sheet
// with the aggregated aging report placed right after them, and a copy of the
// first sheet extended with the per-row analysis columns. The extended copy
// is hidden when hideProcessed is set.
func WriteReport(inputPath, outputPath string, res *aging.AnalysisResult, hideProcessed bool) error {
	f, err := excelize.OpenFile(inputPath)
	if err != nil {
		return fmt.Errorf("WriteReport: open %s: %w", inputPath, err)
	}
	defer f.Close()

	origSheet := f.GetSheetName(0)
	if origSheet == "" {
		return fmt.Errorf("WriteReport: workbook %s has no sheets", inputPath)
	}

	// Sheet creation order fixes the tab order, so Analysis goes in before
	// the processed copy.
	if err := writeAnalysisSheet(f, res); err != nil {
		return fmt.Errorf("WriteReport: %w", err)
	}
	if err := writeProcessedSheet(f, origSheet, res, hideProcessed); err != nil {
		return fmt.Errorf("WriteReport: %w", err)
	}

	origIdx, err := f.GetSheetIndex(origSheet)
	if err != nil {
		return fmt.Errorf("WriteReport: sheet index: %w", err)
	}
	f.SetActiveSheet(origIdx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("WriteReport: save %s: %w", outputPath, err)
	}
	return nil
}

// ProcessedSheetName returns the name of the extended copy of the given
// source sheet, clipped to the xlsx sheet name limit.
func ProcessedSheetName(origSheet string) string {
	name := "Processed_" + origSheet
	if len(name) > maxSheetNameLen {
		name = name[:maxSheetNameLen]
	}
	return name
}

// writeProcessedSheet copies the original sheet and appends one analysis
// column block on the right: the cumulative flag, the invoice / credit
// flags, the normalized due date, the maturity in days and the cluster
// label. Data rows line up with the original sheet, so row n of the copy
// annotates row n of the export.
func writeProcessedSheet(f *excelize.File, origSheet string, res *aging.AnalysisResult, hide bool) error {
	name := ProcessedSheetName(origSheet)

	idx, err := f.NewSheet(name)
	if err != nil {
		return fmt.Errorf("writeProcessedSheet: new sheet: %w", err)
	}
	origIdx, err := f.GetSheetIndex(origSheet)
	if err != nil {
		return fmt.Errorf("writeProcessedSheet: sheet index: %w", err)
	}
	if err := f.CopySheet(origIdx, idx); err != nil {
		return fmt.Errorf("writeProcessedSheet: copy sheet: %w", err)
	}

	rows, err := f.GetRows(origSheet)
	if err != nil {
		return fmt.Errorf("writeProcessedSheet: read original: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("writeProcessedSheet: original sheet %s is empty", origSheet)
	}
	startCol := len(rows[0]) + 1

	center, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("writeProcessedSheet: style: %w", err)
	}

	for i, col := range processedHeader {
		cell, err := excelize.CoordinatesToCellName(startCol+i, 1)
		if err != nil {
			return fmt.Errorf("writeProcessedSheet: %w", err)
		}
		if err := f.SetCellValue(name, cell, col); err != nil {
			return fmt.Errorf("writeProcessedSheet: header %s: %w", col, err)
		}
	}

	setCell := func(col, row int, value any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if value != nil {
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
		}
		return f.SetCellStyle(name, cell, cell, center)
	}

	for _, rec := range res.Records {
		row := rec.RowIndex + 2

		values := make([]any, len(processedHeader))
		values[0] = rec.IsCumulative
		if !rec.IsCumulative {
			values[1] = rec.Classification == aging.ClassificationInvoice
			values[2] = rec.Classification == aging.ClassificationCredit
		}
		if rec.DueDate != nil {
			values[3] = rec.DueDate.String()
		}
		if rec.MaturityDays != nil {
			values[4] = *rec.MaturityDays
		}
		if rec.Cluster != aging.ClusterUnassigned &&
			(rec.Classification == aging.ClassificationInvoice || rec.Classification == aging.ClassificationCredit) {
			values[5] = string(rec.Cluster)
		}

		for i, v := range values {
			if err := setCell(startCol+i, row, v); err != nil {
				return fmt.Errorf("writeProcessedSheet: row %d: %w", row, err)
			}
		}
	}

	if hide {
		if err := f.SetSheetVisible(name, false); err != nil {
			return fmt.Errorf("writeProcessedSheet: hide: %w", err)
		}
	}
	return nil
}

// writeAnalysisSheet renders the aggregated report: run totals, the invoice
// and credit cluster tables side by side, and the source row numbers of the
// cumulative, invoice and credit rows. Amounts get the currency number
// format, shares get the percent format.
func writeAnalysisSheet(f *excelize.File, res *aging.AnalysisResult) error {
	if _, err := f.NewSheet(analysisSheetName); err != nil {
		return fmt.Errorf("writeAnalysisSheet: new sheet: %w", err)
	}

	for i, col := range analysisHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("writeAnalysisSheet: %w", err)
		}
		if err := f.SetCellValue(analysisSheetName, cell, col); err != nil {
			return fmt.Errorf("writeAnalysisSheet: header %s: %w", col, err)
		}
	}

	setCell := func(col, row int, value any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(analysisSheetName, cell, value)
	}

	if err := setCell(1, 2, res.Summary.TotalInvoiced); err != nil {
		return fmt.Errorf("writeAnalysisSheet: totals: %w", err)
	}
	if err := setCell(2, 2, res.Summary.TotalCredited); err != nil {
		return fmt.Errorf("writeAnalysisSheet: totals: %w", err)
	}

	var invoiceBuckets, creditBuckets []aging.ClusterBucket
	for _, b := range res.Buckets {
		switch b.Classification {
		case aging.ClassificationInvoice:
			invoiceBuckets = append(invoiceBuckets, b)
		case aging.ClassificationCredit:
			creditBuckets = append(creditBuckets, b)
		}
	}

	for i, b := range invoiceBuckets {
		row := i + 2
		if err := setCell(3, row, string(b.Cluster)); err != nil {
			return fmt.Errorf("writeAnalysisSheet: invoice bucket: %w", err)
		}
		if err := setCell(4, row, b.Amount); err != nil {
			return fmt.Errorf("writeAnalysisSheet: invoice bucket: %w", err)
		}
		if err := setCell(5, row, b.Percentage); err != nil {
			return fmt.Errorf("writeAnalysisSheet: invoice bucket: %w", err)
		}
	}
	for i, b := range creditBuckets {
		row := i + 2
		if err := setCell(6, row, string(b.Cluster)); err != nil {
			return fmt.Errorf("writeAnalysisSheet: credit bucket: %w", err)
		}
		if err := setCell(7, row, b.Amount); err != nil {
			return fmt.Errorf("writeAnalysisSheet: credit bucket: %w", err)
		}
		if err := setCell(8, row, b.Percentage); err != nil {
			return fmt.Errorf("writeAnalysisSheet: credit bucket: %w", err)
		}
	}

	var cumulativeRows, invoiceRows, creditRows []int
	for _, rec := range res.Records {
		switch {
		case rec.IsCumulative:
			cumulativeRows = append(cumulativeRows, rec.RowIndex+2)
		case rec.Classification == aging.ClassificationInvoice:
			invoiceRows = append(invoiceRows, rec.RowIndex+2)
		case rec.Classification == aging.ClassificationCredit:
			creditRows = append(creditRows, rec.RowIndex+2)
		}
	}
	for col, list := range map[int][]int{9: cumulativeRows, 10: invoiceRows, 11: creditRows} {
		for i, rowNum := range list {
			if err := setCell(col, i+2, rowNum); err != nil {
				return fmt.Errorf("writeAnalysisSheet: row numbers: %w", err)
			}
		}
	}

	if err := styleAnalysisSheet(f, res, len(invoiceBuckets), len(creditBuckets),
		maxInt(len(cumulativeRows), len(invoiceRows), len(creditRows))); err != nil {
		return err
	}
	return nil
}

func styleAnalysisSheet(f *excelize.File, res *aging.AnalysisResult, invoiceRows, creditRows, listRows int) error {
	currencyFmt := "#,##0.00"
	if res.CurrencySymbol != "" {
		currencyFmt = res.CurrencySymbol + " #,##0.00"
	}
	percentFmt := "0.00%"

	centered := excelize.Alignment{Horizontal: "center", Vertical: "center"}
	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt, Alignment: &centered})
	if err != nil {
		return fmt.Errorf("styleAnalysisSheet: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{CustomNumFmt: &percentFmt, Alignment: &centered})
	if err != nil {
		return fmt.Errorf("styleAnalysisSheet: %w", err)
	}
	center, err := f.NewStyle(&excelize.Style{Alignment: &centered})
	if err != nil {
		return fmt.Errorf("styleAnalysisSheet: %w", err)
	}

	lastRow := maxInt(2, invoiceRows+1, creditRows+1, listRows+1)

	styleByColumn := map[int]int{
		1: currency, 2: currency, 4: currency, 7: currency,
		5: percent, 8: percent,
		3: center, 6: center, 9: center, 10: center, 11: center,
	}
	for col, style := range styleByColumn {
		top, err := excelize.CoordinatesToCellName(col, 2)
		if err != nil {
			return fmt.Errorf("styleAnalysisSheet: %w", err)
		}
		bottom, err := excelize.CoordinatesToCellName(col, lastRow)
		if err != nil {
			return fmt.Errorf("styleAnalysisSheet: %w", err)
		}
		if err := f.SetCellStyle(analysisSheetName, top, bottom, style); err != nil {
			return fmt.Errorf("styleAnalysisSheet: %w", err)
		}
	}

	for i, header := range analysisHeader {
		width := float64(len(header) + 2)
		if width < 14 {
			width = 14
		}
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("styleAnalysisSheet: %w", err)
		}
		if err := f.SetColWidth(analysisSheetName, colName, colName, width); err != nil {
			return fmt.Errorf("styleAnalysisSheet: %w", err)
		}
	}
	return nil
}

func maxInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
