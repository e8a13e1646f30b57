package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// leadingNumber matches the numeric prefix of a normalized value.
var leadingNumber = regexp.MustCompile(`^-?(?:\d+(?:\.\d+)?|\.\d+)`)

// ParseLocaleNumber parses free-text numbers written in either European (1.234,56)
// or US (1,234.56) notation. Currency symbols and whitespace are ignored.
// Empty or unparseable input yields zero.
//
// When a comma comes after the last dot, dots are grouping and the first comma
// is the decimal point. Otherwise commas are grouping and the dot is the decimal
// point. Only the leading numeric part of the result is read, so "1,234,567"
// is 1.234 and "12.5-" is 12.5.
func ParseLocaleNumber(text string) decimal.Decimal {
	s := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, text)
	if s == "" {
		return decimal.Zero
	}

	if strings.LastIndexByte(s, ',') > strings.LastIndexByte(s, '.') {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(leadingNumber.FindString(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
