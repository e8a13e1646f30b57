package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// ParseCSV reads comma-separated rows with quoted fields.
func ParseCSV(r io.Reader) ([]domain.Position, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return FromRows(rows), nil
}

// DefaultPublicSheetsURL is the base URL of the public spreadsheet export.
const DefaultPublicSheetsURL = "https://docs.google.com/spreadsheets/d"

// PublicSheetClient downloads spreadsheets shared as "anyone with the link" in CSV form.
type PublicSheetClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPublicSheetClient creates a client for the given export base URL.
func NewPublicSheetClient(baseURL string) *PublicSheetClient {
	return &PublicSheetClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchPublicCSV downloads the first sheet of a public spreadsheet and parses it.
func (c *PublicSheetClient) FetchPublicCSV(ctx context.Context, sheetID string) ([]domain.Position, error) {
	u := fmt.Sprintf("%s/%s/gviz/tq?tqx=out:csv", c.baseURL, url.PathEscape(sheetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating sheet request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return ParseCSV(resp.Body)
}
