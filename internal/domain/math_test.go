package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSafeParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid integer", "100", "100"},
		{"valid decimal", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"negative", "-5.5", "-5.5"},
		{"empty string", "", "0"},
		{"invalid string", "abc", "0"},
		{"whitespace", "  ", "0"},
		{"large number", "999999999999.1234567", "999999999999.1234567"},
		{"small fraction", "0.0000001", "0.0000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeParse(tt.input)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("SafeParse(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestSafeSum(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"normal", "10", "5", "15"},
		{"zero", "0", "0", "0"},
		{"negative", "-3", "5", "2"},
		{"decimal", "1.5", "2.3", "3.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := decimal.NewFromString(tt.a)
			b, _ := decimal.NewFromString(tt.b)
			got := SafeSum(a, b)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("SafeSum(%s, %s) = %s, want %s", tt.a, tt.b, got, want)
			}
		})
	}
}

func TestSafeDiv(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"normal", "10", "4", "2.5"},
		{"zero denominator", "10", "0", "0"},
		{"zero numerator", "0", "5", "0"},
		{"negative", "-9", "3", "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeDiv(SafeParse(tt.a), SafeParse(tt.b))
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("SafeDiv(%s, %s) = %s, want %s", tt.a, tt.b, got, want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, whole string
		want        string
	}{
		{"ten percent", "300", "3000", "10"},
		{"half", "1", "2", "50"},
		{"zero whole", "300", "0", "0"},
		{"negative part", "-200", "2000", "-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(SafeParse(tt.part), SafeParse(tt.whole))
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Percent(%s, %s) = %s, want %s", tt.part, tt.whole, got, want)
			}
		})
	}
}

func TestChange(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     string
	}{
		{"gain", "100", "110", "10"},
		{"loss", "100", "75", "-25"},
		{"flat", "100", "100", "0"},
		{"zero base", "0", "50", "0"},
		{"negative base", "-10", "50", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Change(SafeParse(tt.from), SafeParse(tt.to))
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Change(%s, %s) = %s, want %s", tt.from, tt.to, got, want)
			}
		})
	}
}
