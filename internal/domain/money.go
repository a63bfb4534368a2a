package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DollarsToCents converts a float64 dollar amount to int64 cents.
// It validates that the input has at most 2 decimal places and returns
// an error if more precision is provided. Uses math.Round after
// multiplying by 100 to handle floating-point representation issues.
func DollarsToCents(f float64) (int64, error) {
	// Multiply by 1000 to check for a third decimal place.
	// Round to avoid floating-point artifacts (e.g., 1.10 * 1000 = 1099.9999...).
	scaled := math.Round(f * 1000)
	if math.Mod(scaled, 10) != 0 {
		return 0, fmt.Errorf("monetary values must have at most 2 decimal places")
	}

	cents := math.Round(f * 100)
	return int64(cents), nil
}

// CentsToDollars converts an int64 cents value to a float64 dollar amount.
func CentsToDollars(c int64) float64 {
	return float64(c) / 100.0
}

// ApplyBps shifts a cent price by bps basis points and rounds half away from
// zero to the nearest cent. The result is never below one cent.
func ApplyBps(cents int64, bps float64) int64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(bps).Div(decimal.NewFromInt(10000)))
	shifted := decimal.NewFromInt(cents).Mul(factor).Round(0).IntPart()
	if shifted < 1 {
		return 1
	}
	return shifted
}

// Percent returns num/den × 100 rounded to four decimal places, or 0 when
// den is not positive.
func Percent(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return decimal.NewFromInt(num).
		Div(decimal.NewFromInt(den)).
		Mul(decimal.NewFromInt(100)).
		Round(4).
		InexactFloat64()
}
