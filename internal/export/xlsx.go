package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes the report as an .xlsx workbook.
type XLSXWriter struct {
	out io.Writer
}

// NewXLSXWriter creates a writer that streams the workbook to out.
func NewXLSXWriter(out io.Writer) *XLSXWriter {
	return &XLSXWriter{out: out}
}

// Write produces a workbook with the POSITIONS, SUMMARY and TRACKING sheets.
func (w *XLSXWriter) Write(_ context.Context, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), PositionsSheet); err != nil {
		return fmt.Errorf("naming %s sheet: %w", PositionsSheet, err)
	}
	if err := writeRows(f, PositionsSheet, r.Positions); err != nil {
		return err
	}

	for _, name := range []string{SummarySheet, TrackingSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating %s sheet: %w", name, err)
		}
	}
	if err := writeRows(f, SummarySheet, r.Summary); err != nil {
		return err
	}
	if err := writeRows(f, TrackingSheet, [][]any{trackingHeader, r.Tracking}); err != nil {
		return err
	}

	if err := f.SetPanes(PositionsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing %s header: %w", PositionsSheet, err)
	}

	if _, err := f.WriteTo(w.out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
