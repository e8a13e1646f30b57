package export

import (
	"context"
	"fmt"

	sheets "google.golang.org/api/sheets/v4"
)

// trackingMoneyCols lists 0-based columns of the TRACKING sheet formatted as amounts.
var trackingMoneyCols = []int64{1, 2, 3}

// appendTracking writes the header if the TRACKING sheet is empty, then
// appends one row for the current export.
func (w *SheetsWriter) appendTracking(ctx context.Context, meta sheetMeta, row []any) error {
	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, TrackingSheet+"!A1:A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", TrackingSheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			TrackingSheet+"!A1",
			&sheets.ValueRange{Values: [][]any{trackingHeader}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", TrackingSheet, err)
		}
		if err := w.formatTracking(ctx, meta); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", TrackingSheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		TrackingSheet+"!A:F",
		&sheets.ValueRange{Values: [][]any{row}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", TrackingSheet, err)
	}
	return nil
}

// formatTracking makes the header bold, freezes it and applies number formats.
func (w *SheetsWriter) formatTracking(ctx context.Context, meta sheetMeta) error {
	const totalCols = int64(6)

	reqs := []*sheets.Request{
		cellFormatReq(meta.id, 0, 1, 0, totalCols,
			&sheets.CellFormat{
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(textFormat,horizontalAlignment)"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        meta.id,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		cellFormatReq(meta.id, 1, 10000, 0, 1,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "DATE", Pattern: "yyyy-mm-dd"}},
			"userEnteredFormat.numberFormat"),
		cellFormatReq(meta.id, 1, 10000, 4, 5,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "0.00"}},
			"userEnteredFormat.numberFormat"),
	}
	for _, col := range trackingMoneyCols {
		reqs = append(reqs, cellFormatReq(meta.id, 1, 10000, col, col+1,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00"}},
			"userEnteredFormat.numberFormat"))
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}

func cellFormatReq(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}
