// Package projection computes the illustrative long-horizon growth curve.
package projection

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Default assumptions shown on the dashboard.
var (
	DefaultRate  = decimal.RequireFromString("0.12")
	DefaultYears = 15
)

// Disclaimer must accompany every rendered projection.
const Disclaimer = "Illustrative projection assuming a constant annual return. " +
	"The rate has no statistical basis and is not a forecast or a guarantee of future value."

// Point is the projected value at the end of a year.
type Point struct {
	Period int             `json:"period"`
	Label  string          `json:"label"`
	Value  decimal.Decimal `json:"value"`
}

// Project returns currentTotal × (1 + rate)^i for i in 0..years inclusive.
// Negative years yield an empty curve.
func Project(currentTotal, rate decimal.Decimal, years int) []Point {
	if years < 0 {
		return []Point{}
	}

	growth := decimal.NewFromInt(1).Add(rate)
	points := make([]Point, 0, years+1)
	value := currentTotal
	for i := 0; i <= years; i++ {
		points = append(points, Point{
			Period: i,
			Label:  fmt.Sprintf("Year %d", i),
			Value:  value,
		})
		value = value.Mul(growth)
	}
	return points
}

// Final returns the last projected value, or zero for an empty curve.
func Final(points []Point) decimal.Decimal {
	if len(points) == 0 {
		return decimal.Zero
	}
	return points[len(points)-1].Value
}
