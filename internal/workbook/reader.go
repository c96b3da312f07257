// Package workbook reads xlsx input files into engine tables and renders
// the finished report artifact back out as xlsx.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kritis-ai/opos-analyzer/internal/aging"
)

// ReadTable loads the first sheet of an xlsx file into a table. The first
// row is the header; every following row becomes one raw record keyed by
// header name. Cell values arrive as the formatted strings Excel shows, so
// date columns keep whatever display format the workbook uses.
func ReadTable(path string) (*aging.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ReadTable: open %s: %w", path, err)
	}
	defer f.Close()

	return tableFromFile(f)
}

func tableFromFile(f *excelize.File) (*aging.Table, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("tableFromFile: workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("tableFromFile: read sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tableFromFile: sheet %s is empty", sheetName)
	}

	header := make([]string, len(rows[0]))
	copy(header, rows[0])

	table := &aging.Table{
		SheetName: sheetName,
		Header:    header,
		Rows:      make([]aging.RawRow, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		raw := make(aging.RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				raw[name] = row[i]
			} else {
				raw[name] = ""
			}
		}
		table.Rows = append(table.Rows, raw)
	}

	return table, nil
}
