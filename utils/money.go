package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExponent covers INR, USD and the other two-decimal currencies we bill in.
const minorUnitExponent = 2

// ToMinorUnits converts a major-unit decimal amount (e.g. 10.50) into minor units (1050).
// Amounts with more precision than the currency allows are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(minorUnitExponent)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, minorUnitExponent)
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts minor units back to a major-unit decimal
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorUnitExponent)
}

// FormatAmount renders minor units for humans, e.g. "INR 10.50"
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", currency, FromMinorUnits(minor).StringFixed(minorUnitExponent))
}
