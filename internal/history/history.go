// Package history derives chartable series from raw valuation observations.
package history

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// unknownYear buckets observations whose date cannot be parsed.
const unknownYear = -1

type datedPoint struct {
	point domain.NavPoint
	at    time.Time
	year  int
}

// Derive sorts raw observations by date and computes each point's value for the
// given share count and its year-to-date return against the first observation of
// the same calendar year. The input is not modified; repeated calls on the same
// input return identical results.
func Derive(raw []domain.NavPoint, shares decimal.Decimal) []domain.HistoryPoint {
	if len(raw) == 0 {
		return []domain.HistoryPoint{}
	}

	points := lo.Map(raw, func(p domain.NavPoint, _ int) datedPoint {
		at, ok := domain.ParseDate(p.Date)
		year := unknownYear
		if ok {
			year = at.Year()
		}
		return datedPoint{point: p, at: at, year: year}
	})
	slices.SortStableFunc(points, func(a, b datedPoint) int {
		return a.at.Compare(b.at)
	})

	yearOpen := make(map[int]decimal.Decimal)
	for _, p := range points {
		if _, seen := yearOpen[p.year]; !seen {
			yearOpen[p.year] = p.point.NAV
		}
	}

	return lo.Map(points, func(p datedPoint, _ int) domain.HistoryPoint {
		nav := p.point.NAV
		return domain.HistoryPoint{
			Date:       p.point.Date,
			NAV:        nav,
			Value:      nav.Mul(shares),
			YTDPercent: domain.Change(yearOpen[p.year], nav),
		}
	})
}

// ForPosition derives the position's stored history at its current share count.
func ForPosition(p domain.Position) []domain.HistoryPoint {
	return Derive(p.History, p.Shares)
}

// TimelinePoint is one sample of the estimated portfolio value curve.
type TimelinePoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// growthCurve shapes the estimated value path between purchase and today.
const growthCurve = 1.15

// Timeline estimates the total portfolio value at evenly spaced dates between the
// earliest purchase and now. Each position contributes from its purchase date on,
// moving from the invested amount towards its current value along a slightly convex
// curve. The result is illustrative: it uses no observed prices.
// Positions without a parseable purchase date are ignored.
func Timeline(positions []domain.Position, now time.Time, points int) []TimelinePoint {
	type dated struct {
		pos    domain.Position
		bought time.Time
	}
	held := lo.FilterMap(positions, func(p domain.Position, _ int) (dated, bool) {
		at, ok := domain.ParseDate(p.BuyDate)
		return dated{pos: p, bought: at}, ok
	})
	if len(held) == 0 || points <= 0 {
		return []TimelinePoint{}
	}

	start := lo.MinBy(held, func(a, b dated) bool { return a.bought.Before(b.bought) }).bought
	span := now.Sub(start)

	out := make([]TimelinePoint, 0, points)
	for i := range points {
		at := now
		if i < points-1 {
			at = start.Add(time.Duration(float64(span) * float64(i) / float64(points-1)))
		}

		total := decimal.Zero
		for _, h := range held {
			if h.bought.After(at) {
				continue
			}
			holding := now.Sub(h.bought)
			progress := 1.0
			if holding > 0 {
				progress = float64(at.Sub(h.bought)) / float64(holding)
			}
			gain := h.pos.Profit().Mul(decimal.NewFromFloat(math.Pow(progress, growthCurve)))
			total = total.Add(h.pos.InvestedAmount.Add(gain))
		}
		out = append(out, TimelinePoint{Date: at, Value: total})
	}
	return out
}
