package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Snapshots are exchanged with the browser dashboard, which stores plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// SchemaVersion is the snapshot schema version written on save.
const SchemaVersion = 1

// DefaultPortfolioName is used when no snapshot has been saved yet.
const DefaultPortfolioName = "Main Portfolio"

// OtherCategory is the sector bucket for positions without a category.
const OtherCategory = "Other"

// UnknownCurrency is the ISO 4217 "no currency" code used for positions without a currency.
const UnknownCurrency = "XXX"

// ErrInvalidPosition indicates a position that violates the data model constraints.
var ErrInvalidPosition = errors.New("invalid position")

// NavPoint is a raw (date, NAV) observation.
type NavPoint struct {
	Date string          `json:"date"`
	NAV  decimal.Decimal `json:"nav"`
}

// HistoryPoint is an observation enriched with the position value and year-to-date return.
// It is derived from a position's raw history and never stored.
type HistoryPoint struct {
	Date       string          `json:"date"`
	NAV        decimal.Decimal `json:"nav"`
	Value      decimal.Decimal `json:"value"`
	YTDPercent decimal.Decimal `json:"ytdPercent"`
}

// Position is a single held fund.
type Position struct {
	ISIN           string          `json:"isin"`
	Name           string          `json:"name"`
	Manager        string          `json:"manager"`
	Category       string          `json:"category"`
	BuyDate        string          `json:"buyDate"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	Currency       string          `json:"currency"`
	Shares         decimal.Decimal `json:"shares"`
	Fees           decimal.Decimal `json:"fees"`
	CurrentNAV     decimal.Decimal `json:"currentNAV"`
	LastUpdated    string          `json:"lastUpdated"`
	History        []NavPoint      `json:"history,omitempty"`
}

// CurrentValue returns shares × current NAV.
func (p Position) CurrentValue() decimal.Decimal {
	return p.Shares.Mul(p.CurrentNAV)
}

// Profit returns the current value minus the invested amount.
func (p Position) Profit() decimal.Decimal {
	return p.CurrentValue().Sub(p.InvestedAmount)
}

// ProfitPercent returns the return on the invested amount in percent, 0 when nothing was invested.
func (p Position) ProfitPercent() decimal.Decimal {
	return Percent(p.Profit(), p.InvestedAmount)
}

// Validate checks the identifier and the non-negative quantities.
func (p Position) Validate() error {
	if strings.TrimSpace(p.ISIN) == "" {
		return fmt.Errorf("%w: empty ISIN", ErrInvalidPosition)
	}
	if p.InvestedAmount.IsNegative() {
		return fmt.Errorf("%w: %s: negative invested amount %s", ErrInvalidPosition, p.ISIN, p.InvestedAmount)
	}
	if p.Shares.IsNegative() {
		return fmt.Errorf("%w: %s: negative shares %s", ErrInvalidPosition, p.ISIN, p.Shares)
	}
	if p.CurrentNAV.IsNegative() {
		return fmt.Errorf("%w: %s: negative NAV %s", ErrInvalidPosition, p.ISIN, p.CurrentNAV)
	}
	return nil
}

// Clone returns a copy that shares no memory with p.
func (p Position) Clone() Position {
	p.History = slices.Clone(p.History)
	return p
}

// WithValuation returns a copy of p with NAV, update date and history replaced together.
func (p Position) WithValuation(data FundData) Position {
	out := p.Clone()
	out.CurrentNAV = data.Current.NAV
	out.LastUpdated = data.Current.Date
	out.History = slices.Clone(data.History)
	return out
}

// ClonePositions deep-copies a position list.
func ClonePositions(positions []Position) []Position {
	if positions == nil {
		return nil
	}
	out := make([]Position, len(positions))
	for i, p := range positions {
		out[i] = p.Clone()
	}
	return out
}

// FundData is the result of a valuation lookup for one fund.
type FundData struct {
	Current *NavPoint  `json:"current"`
	History []NavPoint `json:"history"`
}

// Snapshot is the persisted portfolio.
type Snapshot struct {
	Version       int        `json:"version"`
	PortfolioName string     `json:"portfolioName"`
	LastModified  string     `json:"lastModified"`
	Funds         []Position `json:"funds"`
}

// EmptySnapshot returns the snapshot used before anything has been saved.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version:       SchemaVersion,
		PortfolioName: DefaultPortfolioName,
		Funds:         []Position{},
	}
}

// FindPosition returns the index of the position with the given ISIN, or -1.
func FindPosition(positions []Position, isin string) int {
	return slices.IndexFunc(positions, func(p Position) bool { return p.ISIN == isin })
}
