// Package export publishes the positions table and the dashboard summary to spreadsheets.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/fund"
)

// Sheet names shared by every writer.
const (
	PositionsSheet = "POSITIONS"
	SummarySheet   = "SUMMARY"
	TrackingSheet  = "TRACKING"
)

var positionsHeader = []any{
	"ISIN", "Name", "Manager", "Category", "Currency", "BuyDate",
	"Invested", "Shares", "NAV", "Value", "Profit", "Return %", "Weight %", "LastUpdated",
}

var trackingHeader = []any{"Date", "Invested", "Value", "Profit", "Profit %", "Positions"}

// Report is the tabular rendition of a dashboard.
type Report struct {
	GeneratedAt time.Time
	Positions   [][]any
	Summary     [][]any
	Tracking    []any
}

// Writer publishes a report to one destination.
type Writer interface {
	Write(ctx context.Context, r Report) error
}

// Service builds reports and hands them to every configured writer.
type Service struct {
	writers []Writer
	rate    decimal.Decimal
	years   int
	now     func() time.Time
}

// NewService creates an export Service using the given projection assumptions.
func NewService(rate decimal.Decimal, years int, writers ...Writer) *Service {
	return &Service{
		writers: writers,
		rate:    rate,
		years:   years,
		now:     time.Now,
	}
}

// Export publishes snap to every writer. All writers are attempted; their
// errors are joined. Implements worker.AfterRefreshHook.
func (s *Service) Export(ctx context.Context, snap domain.Snapshot) error {
	if len(s.writers) == 0 {
		return nil
	}
	report := BuildReport(fund.Build(snap, s.rate, s.years, s.now()))

	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, report); err != nil {
			slog.Error("Export: writer failed", "writer", fmt.Sprintf("%T", w), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildReport lays out the dashboard as spreadsheet rows.
func BuildReport(d fund.Dashboard) Report {
	return Report{
		GeneratedAt: d.GeneratedAt,
		Positions:   buildPositions(d.Rows),
		Summary:     buildSummary(d),
		Tracking:    buildTracking(d),
	}
}

// buildPositions builds the POSITIONS sheet data.
// Columns: ISIN | Name | Manager | Category | Currency | BuyDate | Invested | Shares | NAV | Value | Profit | Return % | Weight % | LastUpdated
func buildPositions(rows []fund.Row) [][]any {
	data := make([][]any, 0, len(rows)+1)
	data = append(data, positionsHeader)
	for _, r := range rows {
		p := r.Position
		data = append(data, []any{
			p.ISIN, p.Name, p.Manager, p.Category, p.Currency, p.BuyDate,
			toFloat(p.InvestedAmount), toFloat(p.Shares), toFloat(p.CurrentNAV),
			toFloat(r.Value), toFloat(r.Profit),
			toFloat(r.ReturnPercent.Round(2)), toFloat(r.Weight.Round(2)),
			p.LastUpdated,
		})
	}
	return data
}

// buildSummary builds the SUMMARY sheet: totals, then one block per breakdown
// separated by blank rows.
func buildSummary(d fund.Dashboard) [][]any {
	s := d.Summary
	data := [][]any{
		{"Portfolio", d.PortfolioName},
		{"Generated", d.GeneratedAt.Format(time.RFC3339)},
		{"Positions", s.PositionCount},
		{"Total invested", toFloat(s.TotalInvested)},
		{"Current value", toFloat(s.TotalCurrentValue)},
		{"Profit", toFloat(s.Profit)},
		{"Profit %", toFloat(s.ProfitPercent.Round(2))},
		{},
		{"Sector", "Value", "Percent"},
	}
	for _, sec := range s.Sectors {
		data = append(data, []any{sec.Category, toFloat(sec.Value), toFloat(sec.Percent.Round(2))})
	}

	data = append(data, []any{}, []any{"Currency", "Value", "Percent"})
	for _, c := range s.CurrencyExposure {
		data = append(data, []any{c.Currency, toFloat(c.Value), toFloat(c.Percent.Round(2))})
	}

	data = append(data, []any{}, []any{"Top performers", "ISIN", "Return %"})
	for _, p := range s.TopPerformers {
		data = append(data, []any{p.Name, p.ISIN, toFloat(p.ReturnPercent.Round(2))})
	}
	data = append(data, []any{}, []any{"Bottom performers", "ISIN", "Return %"})
	for _, p := range s.BottomPerformers {
		data = append(data, []any{p.Name, p.ISIN, toFloat(p.ReturnPercent.Round(2))})
	}

	data = append(data, []any{}, []any{"Projection", "Value"})
	for _, p := range d.Projection {
		data = append(data, []any{p.Label, toFloat(p.Value.Round(2))})
	}
	return data
}

// buildTracking builds the row appended to the TRACKING sheet on every export.
func buildTracking(d fund.Dashboard) []any {
	s := d.Summary
	return []any{
		d.GeneratedAt.Format(time.DateOnly),
		toFloat(s.TotalInvested),
		toFloat(s.TotalCurrentValue),
		toFloat(s.Profit),
		toFloat(s.ProfitPercent.Round(2)),
		s.PositionCount,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
