package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet every export is written to.
const SheetName = "Tests"

// WriteWorkbook serializes the records into a single-sheet xlsx workbook at
// path, creating or overwriting the file. The header row contains the
// columns (given in mapping declaration order) that actually occur in at
// least one record; data rows follow in the order the records were
// collected, with empty cells for columns a record lacks.
func WriteWorkbook(path string, columns []string, records []Record) error {
	header := presentColumns(columns, records)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	if err := writeRow(f, 1, header); err != nil {
		return err
	}
	for i, rec := range records {
		row := make([]string, len(header))
		for j, col := range header {
			row[j] = rec[col]
		}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing workbook %s: %w", path, err)
	}
	return nil
}

// presentColumns intersects the declared column order with the columns that
// actually carry data. An export without records keeps the full declared
// header, matching the empty-plan output of the original tool.
func presentColumns(columns []string, records []Record) []string {
	if len(records) == 0 {
		return columns
	}
	seen := make(map[string]bool)
	for _, rec := range records {
		for col := range rec {
			seen[col] = true
		}
	}
	present := make([]string, 0, len(seen))
	for _, col := range columns {
		if seen[col] {
			present = append(present, col)
		}
	}
	return present
}

func writeRow(f *excelize.File, rowIdx int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIdx)
	if err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("writing workbook row %d: %w", rowIdx, err)
	}
	return nil
}
