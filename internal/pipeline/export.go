package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"carecount/internal"
)

// ExportItemsToXLSX writes logged items to a spreadsheet for the food bank's
// reporting workflow.
func ExportItemsToXLSX(items []internal.ItemRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"id", "table", "visit_id", "volunteer", "item_name", "qty",
		"category", "unit", "barcode", "timestamp", "ingest_id",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, item.ID)
		set(2, string(item.Table))
		set(3, item.VisitID)
		set(4, item.VolunteerEmail)
		set(5, item.ItemName)
		set(6, item.Qty)
		set(7, derefString(item.Category))
		set(8, derefString(item.Unit))
		set(9, derefString(item.Barcode))
		set(10, item.Timestamp)
		set(11, derefString(item.IngestID))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ExportDailyActivityToXLSX writes one row per day of visit/item counts.
func ExportDailyActivityToXLSX(days []internal.DailyActivity, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range []string{"day", "visits", "items"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, day := range days {
		r := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, r)
		_ = f.SetCellValue(sheet, cell, day.Day)
		cell, _ = excelize.CoordinatesToCellName(2, r)
		_ = f.SetCellValue(sheet, cell, day.Visits)
		cell, _ = excelize.CoordinatesToCellName(3, r)
		_ = f.SetCellValue(sheet, cell, day.Items)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
