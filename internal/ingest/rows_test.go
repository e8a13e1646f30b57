package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFromRows(t *testing.T) {
	rows := [][]string{
		Header,
		{"IE00B4L5Y983", `"iShares Core MSCI World"`, "BlackRock", "Global Equity", "2023-02-01", "1.234,56", "eur", "12,5", "0,20", "98.45", "2026-01-14"},
		{"LU0996179007", "Amundi Index", "Amundi", "", "2024-05-10", "$1,200.50", "USD", "3", "0", "400"},
		{"SHORT", "only", "three"},
		{"", "", ""},
		{"  ", "No ISIN", "X", "Y", "2024-01-01", "1", "EUR", "1", "0", "1", ""},
	}

	got := FromRows(rows)

	if len(got) != 2 {
		t.Fatalf("positions = %d, want 2: %+v", len(got), got)
	}

	first := got[0]
	if first.Name != "iShares Core MSCI World" {
		t.Errorf("Name = %q, quotes not stripped", first.Name)
	}
	if !first.InvestedAmount.Equal(dec("1234.56")) {
		t.Errorf("InvestedAmount = %s, want 1234.56", first.InvestedAmount)
	}
	if !first.Shares.Equal(dec("12.5")) || !first.Fees.Equal(dec("0.2")) || !first.CurrentNAV.Equal(dec("98.45")) {
		t.Errorf("numbers = %s %s %s", first.Shares, first.Fees, first.CurrentNAV)
	}
	if first.Currency != "EUR" || first.LastUpdated != "2026-01-14" {
		t.Errorf("Currency = %q, LastUpdated = %q", first.Currency, first.LastUpdated)
	}

	second := got[1]
	if !second.InvestedAmount.Equal(dec("1200.50")) {
		t.Errorf("InvestedAmount = %s, want 1200.50", second.InvestedAmount)
	}
	if second.LastUpdated != "" {
		t.Errorf("LastUpdated = %q, want empty for a ten-column row", second.LastUpdated)
	}
}

func TestFromRowsHeaderOnly(t *testing.T) {
	if got := FromRows([][]string{Header}); len(got) != 0 {
		t.Errorf("positions = %d, want 0", len(got))
	}
	if got := FromRows(nil); len(got) != 0 {
		t.Errorf("positions = %d, want 0", len(got))
	}
}

func TestText(t *testing.T) {
	tests := map[string]string{
		`  "Quoted"  `: "Quoted",
		`plain`:        "plain",
		`""`:           "",
		`" spaced "`:   "spaced",
	}
	for in, want := range tests {
		if got := text(in); got != want {
			t.Errorf("text(%q) = %q, want %q", in, got, want)
		}
	}
}
