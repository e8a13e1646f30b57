package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleCSV = `"ISIN","Name","Manager","Category","BuyDate","Invested","Currency","Shares","Fees","NAV","LastUpdated"
"IE00B4L5Y983","iShares Core MSCI World, Acc","BlackRock","Global Equity","2023-02-01","1.234,56","EUR","12,5","0,2","98.45","2026-01-14"
"LU0996179007","Amundi Index","Amundi","","2024-05-10","1,200.50","USD","3","0","400"
"broken","row"
`

func TestParseCSV(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("positions = %d, want 2", len(got))
	}
	if got[0].Name != "iShares Core MSCI World, Acc" {
		t.Errorf("Name = %q, quoted comma split the field", got[0].Name)
	}
	if !got[0].InvestedAmount.Equal(dec("1234.56")) || !got[1].InvestedAmount.Equal(dec("1200.5")) {
		t.Errorf("invested = %s, %s", got[0].InvestedAmount, got[1].InvestedAmount)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("positions = %d, want 0", len(got))
	}
}

func TestFetchPublicCSV(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := NewPublicSheetClient(server.URL)
	got, err := client.FetchPublicCSV(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/abc123/gviz/tq" || gotQuery != "tqx=out:csv" {
		t.Errorf("requested %s?%s", gotPath, gotQuery)
	}
	if len(got) != 2 {
		t.Errorf("positions = %d, want 2", len(got))
	}
}

func TestFetchPublicCSVHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "private sheet", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewPublicSheetClient(server.URL).FetchPublicCSV(context.Background(), "abc123")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want HTTP 401", err)
	}
}
