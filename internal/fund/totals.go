package fund

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// PerformerLimit caps the top and bottom performer lists.
const PerformerLimit = 5

// SectorShare is the current value held in one category.
type SectorShare struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Percent  decimal.Decimal `json:"percent"`
}

// CurrencyShare is the current value denominated in one currency.
type CurrencyShare struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
	Percent  decimal.Decimal `json:"percent"`
}

// PositionReturn is a position's return on its invested amount.
type PositionReturn struct {
	ISIN          string          `json:"isin"`
	Name          string          `json:"name"`
	ReturnPercent decimal.Decimal `json:"returnPercent"`
}

// Summary holds the portfolio-wide aggregates shown on the dashboard.
type Summary struct {
	TotalInvested     decimal.Decimal  `json:"totalInvested"`
	TotalCurrentValue decimal.Decimal  `json:"totalCurrentValue"`
	Profit            decimal.Decimal  `json:"profit"`
	ProfitPercent     decimal.Decimal  `json:"profitPercent"`
	Sectors           []SectorShare    `json:"sectors"`
	TopPerformers     []PositionReturn `json:"topPerformers"`
	BottomPerformers  []PositionReturn `json:"bottomPerformers"`
	CurrencyExposure  []CurrencyShare  `json:"currencyExposure"`
	PositionCount     int              `json:"positionCount"`
}

// Row is one line of the positions table.
type Row struct {
	Position      domain.Position `json:"position"`
	Value         decimal.Decimal `json:"value"`
	Profit        decimal.Decimal `json:"profit"`
	ReturnPercent decimal.Decimal `json:"returnPercent"`
	Weight        decimal.Decimal `json:"weight"`
}

// Aggregate computes the dashboard aggregates. It never fails: every zero
// denominator resolves to a zero percentage.
func Aggregate(positions []domain.Position) Summary {
	invested := lo.Reduce(positions, func(acc decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
		return domain.SafeSum(acc, p.InvestedAmount)
	}, decimal.Zero)
	total := totalValue(positions)
	profit := total.Sub(invested)

	return Summary{
		TotalInvested:     invested,
		TotalCurrentValue: total,
		Profit:            profit,
		ProfitPercent:     domain.Percent(profit, invested),
		Sectors:           sectorBreakdown(positions, total),
		TopPerformers:     rankReturns(positions, true),
		BottomPerformers:  rankReturns(positions, false),
		CurrencyExposure:  currencyExposure(positions, total),
		PositionCount:     len(positions),
	}
}

// Weight returns the position's share of the portfolio value in percent.
func Weight(p domain.Position, total decimal.Decimal) decimal.Decimal {
	return domain.Percent(p.CurrentValue(), total)
}

// Rows returns the positions table in portfolio order.
func Rows(positions []domain.Position) []Row {
	total := totalValue(positions)
	return lo.Map(positions, func(p domain.Position, _ int) Row {
		return Row{
			Position:      p.Clone(),
			Value:         p.CurrentValue(),
			Profit:        p.Profit(),
			ReturnPercent: p.ProfitPercent(),
			Weight:        Weight(p, total),
		}
	})
}

func totalValue(positions []domain.Position) decimal.Decimal {
	return lo.Reduce(positions, func(acc decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
		return domain.SafeSum(acc, p.CurrentValue())
	}, decimal.Zero)
}

// groupValues sums current value per key, keeping keys in first-seen order.
func groupValues(positions []domain.Position, key func(domain.Position) string) ([]string, map[string]decimal.Decimal) {
	keys := lo.Uniq(lo.Map(positions, func(p domain.Position, _ int) string { return key(p) }))
	groups := lo.GroupBy(positions, key)
	sums := lo.MapValues(groups, func(ps []domain.Position, _ string) decimal.Decimal {
		return totalValue(ps)
	})
	return keys, sums
}

func sectorBreakdown(positions []domain.Position, total decimal.Decimal) []SectorShare {
	keys, sums := groupValues(positions, func(p domain.Position) string {
		if c := strings.TrimSpace(p.Category); c != "" {
			return c
		}
		return domain.OtherCategory
	})
	sectors := lo.Map(keys, func(k string, _ int) SectorShare {
		return SectorShare{Category: k, Value: sums[k], Percent: domain.Percent(sums[k], total)}
	})
	slices.SortStableFunc(sectors, func(a, b SectorShare) int {
		return b.Value.Cmp(a.Value)
	})
	return sectors
}

func currencyExposure(positions []domain.Position, total decimal.Decimal) []CurrencyShare {
	keys, sums := groupValues(positions, func(p domain.Position) string {
		if c := strings.ToUpper(strings.TrimSpace(p.Currency)); c != "" {
			return c
		}
		return domain.UnknownCurrency
	})
	exposure := lo.Map(keys, func(k string, _ int) CurrencyShare {
		return CurrencyShare{Currency: k, Value: sums[k], Percent: domain.Percent(sums[k], total)}
	})
	slices.SortStableFunc(exposure, func(a, b CurrencyShare) int {
		return b.Value.Cmp(a.Value)
	})
	return exposure
}

// rankReturns orders positions by return, descending for the top list and
// ascending for the bottom list. Ties keep portfolio order.
func rankReturns(positions []domain.Position, descending bool) []PositionReturn {
	returns := lo.Map(positions, func(p domain.Position, _ int) PositionReturn {
		return PositionReturn{ISIN: p.ISIN, Name: p.Name, ReturnPercent: p.ProfitPercent()}
	})
	slices.SortStableFunc(returns, func(a, b PositionReturn) int {
		if descending {
			return b.ReturnPercent.Cmp(a.ReturnPercent)
		}
		return a.ReturnPercent.Cmp(b.ReturnPercent)
	})
	return lo.Subset(returns, 0, PerformerLimit)
}
