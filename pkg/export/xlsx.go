package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

const SheetName = "Inventory"

// XLSX writes the records table to a single-sheet workbook at Path.
type XLSX struct {
	Path   string
	Logger *log.Logger
}

func (x *XLSX) Name() string { return FormatXLSX }

func (x *XLSX) Export(_ context.Context, _ models.Run, recs []pipeline.Record) error {
	if len(recs) == 0 {
		logf(x.Logger, "WARN no data to save path=%s", x.Path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(x.Path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := fillSheet(f, SheetName, recs, headerStyle); err != nil {
		return err
	}

	if err := f.SaveAs(x.Path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	logf(x.Logger, "data saved records=%d path=%s", len(recs), x.Path)
	return nil
}

// fillSheet writes the header row, one row per record and the column widths.
func fillSheet(f *excelize.File, sheet string, recs []pipeline.Record, headerStyle int) error {
	for i, h := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}
	for i, r := range recs {
		for j, v := range row(r) {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}
	for i := range Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 24); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}
