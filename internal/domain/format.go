package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount in the display form of its currency, e.g. "$1,234.50".
// Unknown currency codes fall back to "<amount> <code>".
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(code)
	if cur == nil {
		return strings.TrimSpace(amount.StringFixed(2) + " " + code)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatPercent renders a signed percentage with two decimals, e.g. "+10.00%".
func FormatPercent(p decimal.Decimal) string {
	sign := ""
	if !p.IsNegative() {
		sign = "+"
	}
	return fmt.Sprintf("%s%s%%", sign, p.StringFixed(2))
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01",
}

// ParseDate parses the date forms found in snapshots and lookup replies.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
