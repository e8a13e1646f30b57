// Package ingest reads positions from spreadsheets laid out with one fund per row.
package ingest

import (
	"log/slog"
	"strings"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// Column layout shared by every spreadsheet source.
const (
	colISIN = iota
	colName
	colManager
	colCategory
	colBuyDate
	colInvested
	colCurrency
	colShares
	colFees
	colNAV
	colLastUpdated

	columnCount
)

// minColumns is the shortest row accepted; LastUpdated may be missing.
const minColumns = columnCount - 1

// Header is the expected first row, in column order.
var Header = []string{
	"ISIN", "Name", "Manager", "Category", "BuyDate", "Invested",
	"Currency", "Shares", "Fees", "NAV", "LastUpdated",
}

// FromRows maps spreadsheet rows to positions. The first row is a header and is
// skipped. Blank rows, rows with fewer than ten columns and rows without an
// ISIN are dropped.
func FromRows(rows [][]string) []domain.Position {
	positions := make([]domain.Position, 0, len(rows))
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		if len(row) < minColumns {
			slog.Debug("Ingest: skipping short row", "row", i+1, "columns", len(row))
			continue
		}
		p := fromRow(row)
		if p.ISIN == "" {
			slog.Warn("Ingest: skipping row without ISIN", "row", i+1)
			continue
		}
		positions = append(positions, p)
	}
	return positions
}

func fromRow(row []string) domain.Position {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return text(row[i])
	}
	number := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	return domain.Position{
		ISIN:           cell(colISIN),
		Name:           cell(colName),
		Manager:        cell(colManager),
		Category:       cell(colCategory),
		BuyDate:        cell(colBuyDate),
		InvestedAmount: domain.ParseLocaleNumber(number(colInvested)),
		Currency:       strings.ToUpper(cell(colCurrency)),
		Shares:         domain.ParseLocaleNumber(number(colShares)),
		Fees:           domain.ParseLocaleNumber(number(colFees)),
		CurrentNAV:     domain.ParseLocaleNumber(number(colNAV)),
		LastUpdated:    cell(colLastUpdated),
	}
}

// text trims a cell and strips one pair of surrounding double quotes.
func text(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
