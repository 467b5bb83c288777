package expense

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const ExportSheetName = "Expenses"

var exportColumnWidths = []float64{8, 20, 28, 12, 10, 16, 16, 10, 10, 40, 20}

// WriteWorkbook renders expenses as an xlsx workbook with the ledger columns.
func WriteWorkbook(w io.Writer, expenses []*Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(LedgerHeaders))
	for i, h := range LedgerHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(LedgerHeaders))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ExportSheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, width := range exportColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ExportSheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, e := range expenses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := e.LedgerRow()
		if err := f.SetSheetRow(ExportSheetName, cell, &row); err != nil {
			return fmt.Errorf("write expense %d: %w", e.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
