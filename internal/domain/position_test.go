package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPositionCurrentValue(t *testing.T) {
	p := Position{ISIN: "IE00B4L5Y983", Shares: dec("185.5"), CurrentNAV: dec("98.45")}
	if got := p.CurrentValue(); !got.Equal(dec("18262.475")) {
		t.Errorf("CurrentValue = %s, want 18262.475", got)
	}

	// The value follows its inputs; nothing is cached.
	p.CurrentNAV = dec("100")
	if got := p.CurrentValue(); !got.Equal(dec("18550")) {
		t.Errorf("CurrentValue after NAV change = %s, want 18550", got)
	}
}

func TestPositionProfitPercent(t *testing.T) {
	p := Position{InvestedAmount: dec("1000"), Shares: dec("10"), CurrentNAV: dec("150")}
	if got := p.ProfitPercent(); !got.Equal(dec("50")) {
		t.Errorf("ProfitPercent = %s, want 50", got)
	}

	free := Position{Shares: dec("10"), CurrentNAV: dec("150")}
	if got := free.ProfitPercent(); !got.IsZero() {
		t.Errorf("ProfitPercent with zero invested = %s, want 0", got)
	}
}

func TestPositionValidate(t *testing.T) {
	tests := []struct {
		name    string
		pos     Position
		wantErr bool
	}{
		{"valid", Position{ISIN: "LU0996179007", Shares: dec("1")}, false},
		{"zero quantities", Position{ISIN: "LU0996179007"}, false},
		{"empty isin", Position{ISIN: "  "}, true},
		{"negative shares", Position{ISIN: "X", Shares: dec("-1")}, true},
		{"negative invested", Position{ISIN: "X", InvestedAmount: dec("-1")}, true},
		{"negative nav", Position{ISIN: "X", CurrentNAV: dec("-0.01")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pos.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("error %v does not wrap ErrInvalidPosition", err)
			}
		})
	}
}

func TestPositionWithValuation(t *testing.T) {
	orig := Position{
		ISIN:       "IE00B3XXRP09",
		Shares:     dec("2"),
		CurrentNAV: dec("100"),
		History:    []NavPoint{{Date: "2024-01-01", NAV: dec("90")}},
	}
	data := FundData{
		Current: &NavPoint{Date: "2025-01-10", NAV: dec("120")},
		History: []NavPoint{{Date: "2024-12-01", NAV: dec("115")}},
	}

	got := orig.WithValuation(data)

	if !got.CurrentNAV.Equal(dec("120")) || got.LastUpdated != "2025-01-10" {
		t.Errorf("valuation not applied: nav=%s date=%s", got.CurrentNAV, got.LastUpdated)
	}
	if len(got.History) != 1 || got.History[0].Date != "2024-12-01" {
		t.Errorf("history not replaced: %+v", got.History)
	}
	if !orig.CurrentNAV.Equal(dec("100")) || orig.History[0].Date != "2024-01-01" {
		t.Error("original position was mutated")
	}

	data.History[0].Date = "changed"
	if got.History[0].Date != "2024-12-01" {
		t.Error("position shares history memory with the lookup result")
	}
}

func TestPositionJSONRoundTripUsesNumbers(t *testing.T) {
	raw := `{"isin":"LU0360863863","name":"Morgan Stanley Global Brands","manager":"Morgan Stanley",
		"category":"Global Quality","buyDate":"2022-11-05","investedAmount":8000,"currency":"EUR",
		"shares":38.5,"fees":12,"currentNAV":235.1,"lastUpdated":"2026-01-14",
		"history":[{"date":"2025-12-01","nav":230.5,"value":8874.25,"ytdPercent":1.5}]}`

	var p Position
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Shares.Equal(dec("38.5")) || len(p.History) != 1 {
		t.Fatalf("unexpected position: %+v", p)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"shares":38.5`) {
		t.Errorf("decimal fields must encode as JSON numbers, got %s", out)
	}
	if strings.Contains(string(out), "currentValue") || strings.Contains(string(out), "ytdPercent") {
		t.Errorf("derived values must not be serialized, got %s", out)
	}
}

func TestFindPosition(t *testing.T) {
	positions := []Position{{ISIN: "A"}, {ISIN: "B"}}
	if i := FindPosition(positions, "B"); i != 1 {
		t.Errorf("FindPosition(B) = %d, want 1", i)
	}
	if i := FindPosition(positions, "C"); i != -1 {
		t.Errorf("FindPosition(C) = %d, want -1", i)
	}
}
