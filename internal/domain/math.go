package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeSum adds two decimals.
func SafeSum(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// SafeDiv divides a by b. Returns zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percent returns part / whole × 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return SafeDiv(part, whole).Mul(hundred)
}

// Change returns (to - from) / from × 100. Returns zero unless from is positive.
func Change(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return Percent(to.Sub(from), from)
}
