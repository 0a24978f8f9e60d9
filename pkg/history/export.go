package history

import (
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

const exportSheet = "History"

var exportHeader = []interface{}{"Expression", "Result", "Unit", "Timestamp"}

// WriteXLSX выгружает записи в таблицу Excel в переданном порядке
func WriteXLSX(w io.Writer, items []structs.HistoryItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{item.Expression, item.Result, item.Unit, item.Timestamp.Format(time.RFC3339)}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 32); err != nil {
		return err
	}
	return f.Write(w)
}
