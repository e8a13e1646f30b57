package export

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter implements Writer using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	return newSheetsWriter(ctx, spreadsheetID, option.WithCredentials(creds))
}

func newSheetsWriter(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsWriter, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write ensures the report sheets exist, rewrites POSITIONS and SUMMARY and
// appends the tracking row.
func (w *SheetsWriter) Write(ctx context.Context, r Report) error {
	meta, err := w.ensureSheets(ctx, PositionsSheet, SummarySheet, TrackingSheet)
	if err != nil {
		return err
	}

	_, err = w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{
			Ranges: []string{PositionsSheet + "!A:N", SummarySheet + "!A:C"},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheets: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data: []*sheets.ValueRange{
				{Range: PositionsSheet + "!A1", Values: r.Positions},
				{Range: SummarySheet + "!A1", Values: r.Summary},
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheets: %w", err)
	}

	return w.appendTracking(ctx, meta[TrackingSheet], r.Tracking)
}

// sheetMeta identifies an existing sheet.
type sheetMeta struct {
	id int64
}

// ensureSheets creates any of the named sheets that do not already exist and
// returns the IDs of all of them.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) (map[string]sheetMeta, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	meta := make(map[string]sheetMeta, len(names))
	for _, s := range spreadsheet.Sheets {
		meta[s.Properties.Title] = sheetMeta{id: s.Properties.SheetId}
	}

	var requests []*sheets.Request
	for _, name := range names {
		if _, ok := meta[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return meta, nil
	}

	resp, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating sheets: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			p := reply.AddSheet.Properties
			meta[p.Title] = sheetMeta{id: p.SheetId}
		}
	}

	return meta, nil
}
