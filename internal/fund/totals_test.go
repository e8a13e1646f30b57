package fund

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// pos builds a position worth value with one share.
func pos(isin, category, currency, invested, value string) domain.Position {
	return domain.Position{
		ISIN:           isin,
		Name:           "Fund " + isin,
		Category:       category,
		Currency:       currency,
		InvestedAmount: dec(invested),
		Shares:         dec("1"),
		CurrentNAV:     dec(value),
	}
}

func TestAggregateTotals(t *testing.T) {
	positions := []domain.Position{
		pos("A", "Equity", "EUR", "1000", "1500"),
		pos("B", "Bonds", "EUR", "2000", "1800"),
	}

	s := Aggregate(positions)

	if !s.TotalInvested.Equal(dec("3000")) {
		t.Errorf("TotalInvested = %s, want 3000", s.TotalInvested)
	}
	if !s.TotalCurrentValue.Equal(dec("3300")) {
		t.Errorf("TotalCurrentValue = %s, want 3300", s.TotalCurrentValue)
	}
	if !s.Profit.Equal(dec("300")) {
		t.Errorf("Profit = %s, want 300", s.Profit)
	}
	if !s.ProfitPercent.Equal(dec("10")) {
		t.Errorf("ProfitPercent = %s, want 10", s.ProfitPercent)
	}
	if s.PositionCount != 2 {
		t.Errorf("PositionCount = %d, want 2", s.PositionCount)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)

	for name, v := range map[string]decimal.Decimal{
		"TotalInvested":     s.TotalInvested,
		"TotalCurrentValue": s.TotalCurrentValue,
		"Profit":            s.Profit,
		"ProfitPercent":     s.ProfitPercent,
	} {
		if !v.IsZero() {
			t.Errorf("%s = %s, want 0", name, v)
		}
	}
	if len(s.Sectors) != 0 || len(s.TopPerformers) != 0 || len(s.BottomPerformers) != 0 || len(s.CurrencyExposure) != 0 {
		t.Errorf("breakdowns should be empty: %+v", s)
	}
}

func TestAggregateZeroDenominators(t *testing.T) {
	// Nothing invested and nothing valued yet.
	s := Aggregate([]domain.Position{pos("A", "", "", "0", "0")})

	if !s.ProfitPercent.IsZero() {
		t.Errorf("ProfitPercent = %s, want 0", s.ProfitPercent)
	}
	if len(s.Sectors) != 1 || !s.Sectors[0].Percent.IsZero() {
		t.Errorf("Sectors = %+v, want one bucket at 0%%", s.Sectors)
	}
	if !s.TopPerformers[0].ReturnPercent.IsZero() {
		t.Errorf("return with zero invested = %s, want 0", s.TopPerformers[0].ReturnPercent)
	}
}

func TestSectorBreakdown(t *testing.T) {
	positions := []domain.Position{
		pos("A", "Equity", "EUR", "100", "300"),
		pos("B", "", "EUR", "100", "100"),
		pos("C", "Bonds", "USD", "100", "200"),
		pos("D", "Equity", "USD", "100", "100"),
		pos("E", "  ", "EUR", "100", "50"),
	}

	s := Aggregate(positions)

	want := []struct {
		category string
		value    string
	}{
		{"Equity", "400"},
		{"Bonds", "200"},
		{domain.OtherCategory, "150"},
	}
	if len(s.Sectors) != len(want) {
		t.Fatalf("Sectors = %+v, want %d buckets", s.Sectors, len(want))
	}
	sum := decimal.Zero
	for i, w := range want {
		if s.Sectors[i].Category != w.category || !s.Sectors[i].Value.Equal(dec(w.value)) {
			t.Errorf("Sectors[%d] = %s %s, want %s %s", i, s.Sectors[i].Category, s.Sectors[i].Value, w.category, w.value)
		}
		sum = sum.Add(s.Sectors[i].Percent)
	}
	if !sum.Round(8).Equal(dec("100")) {
		t.Errorf("sector percentages sum to %s, want 100", sum)
	}
}

func TestCurrencyExposure(t *testing.T) {
	positions := []domain.Position{
		pos("A", "", "eur", "0", "100"),
		pos("B", "", "USD", "0", "300"),
		pos("C", "", "", "0", "100"),
	}

	s := Aggregate(positions)

	want := []struct {
		currency string
		percent  string
	}{
		{"USD", "60"},
		{"EUR", "20"},
		{domain.UnknownCurrency, "20"},
	}
	if len(s.CurrencyExposure) != len(want) {
		t.Fatalf("CurrencyExposure = %+v", s.CurrencyExposure)
	}
	for i, w := range want {
		got := s.CurrencyExposure[i]
		if got.Currency != w.currency || !got.Percent.Equal(dec(w.percent)) {
			t.Errorf("CurrencyExposure[%d] = %s %s%%, want %s %s%%", i, got.Currency, got.Percent, w.currency, w.percent)
		}
	}
}

func TestPerformers(t *testing.T) {
	positions := []domain.Position{
		pos("P1", "", "", "100", "110"), // +10
		pos("P2", "", "", "100", "150"), // +50
		pos("P3", "", "", "100", "90"),  // -10
		pos("P4", "", "", "100", "110"), // +10, ties with P1
		pos("P5", "", "", "100", "200"), // +100
		pos("P6", "", "", "100", "50"),  // -50
		pos("P7", "", "", "100", "100"), // 0
	}

	s := Aggregate(positions)

	isins := func(rs []PositionReturn) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ISIN
		}
		return out
	}

	wantTop := []string{"P5", "P2", "P1", "P4", "P7"}
	wantBottom := []string{"P6", "P3", "P7", "P1", "P4"}

	if got := isins(s.TopPerformers); !equalStrings(got, wantTop) {
		t.Errorf("TopPerformers = %v, want %v", got, wantTop)
	}
	if got := isins(s.BottomPerformers); !equalStrings(got, wantBottom) {
		t.Errorf("BottomPerformers = %v, want %v", got, wantBottom)
	}
}

func TestRowsAndWeight(t *testing.T) {
	positions := []domain.Position{
		pos("A", "", "", "100", "250"),
		pos("B", "", "", "100", "750"),
	}

	rows := Rows(positions)

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !rows[0].Weight.Equal(dec("25")) || !rows[1].Weight.Equal(dec("75")) {
		t.Errorf("weights = %s, %s; want 25, 75", rows[0].Weight, rows[1].Weight)
	}
	if !rows[1].Profit.Equal(dec("650")) || !rows[1].ReturnPercent.Equal(dec("650")) {
		t.Errorf("row B = %+v", rows[1])
	}
	if w := Weight(positions[0], decimal.Zero); !w.IsZero() {
		t.Errorf("Weight with zero total = %s, want 0", w)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
