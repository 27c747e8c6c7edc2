package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

const sheet = "RouterQueue"

// ToXLSX returns a workbook (as bytes) with the same columns and rows as ToCSV.
func ToXLSX(items []entity.QueueItem) ([]byte, error) {
	rows := DoneRows(items)
	if len(rows) == 0 {
		return nil, ErrNoDocument
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range constants.ExportHeader() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			// Serials and passwords must stay text, never numbers.
			_ = f.SetCellStr(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 22) // serial
	_ = f.SetColWidth(sheet, "B", "B", 26) // default ssid
	_ = f.SetColWidth(sheet, "C", "C", 18) // default pass
	_ = f.SetColWidth(sheet, "D", "D", 26) // target ssid

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
