package export

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

func TestSheetsWriterWrite(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sid"):
			w.Write([]byte(`{"sheets": [{"properties": {"title": "POSITIONS", "sheetId": 1}}]}`))
		case strings.HasSuffix(r.URL.Path, "/spreadsheets/sid:batchUpdate"):
			w.Write([]byte(`{"replies": [
				{"addSheet": {"properties": {"title": "SUMMARY", "sheetId": 2}}},
				{"addSheet": {"properties": {"title": "TRACKING", "sheetId": 3}}}
			]}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	writer, err := newSheetsWriter(context.Background(), "sid",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("newSheetsWriter: %v", err)
	}

	if err := writer.Write(context.Background(), BuildReport(sampleDashboard())); err != nil {
		t.Fatalf("Write: %v", err)
	}

	joined := strings.Join(calls, "\n")
	for _, want := range []string{
		"GET /v4/spreadsheets/sid",
		"/values:batchClear",
		"/values:batchUpdate",
		"TRACKING!A:F:append",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("no request matching %q in:\n%s", want, joined)
		}
	}
	// Sheet creation plus header formatting of the empty tracking sheet.
	if n := strings.Count(joined, "sid:batchUpdate"); n != 2 {
		t.Errorf("spreadsheet batchUpdate calls = %d, want 2", n)
	}
}
