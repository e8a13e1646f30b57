package ingest

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// SheetsReader reads positions from a private spreadsheet with the Google Sheets API.
type SheetsReader struct {
	spreadsheetID string
	readRange     string
	svc           *sheets.Service
}

// NewSheetsReader creates a SheetsReader authenticated with a service account JSON.
func NewSheetsReader(ctx context.Context, spreadsheetID, readRange, credentialsJSON string) (*SheetsReader, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	return newSheetsReader(ctx, spreadsheetID, readRange, option.WithCredentials(creds))
}

func newSheetsReader(ctx context.Context, spreadsheetID, readRange string, opts ...option.ClientOption) (*SheetsReader, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &SheetsReader{spreadsheetID: spreadsheetID, readRange: readRange, svc: svc}, nil
}

// ReadPositions reads the configured range, header row included.
func (r *SheetsReader) ReadPositions(ctx context.Context) ([]domain.Position, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, r.readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.readRange, err)
	}
	return FromRows(cellsToStrings(resp.Values)), nil
}

func cellsToStrings(values [][]any) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				rows[i][j] = fmt.Sprint(v)
			}
		}
	}
	return rows
}
