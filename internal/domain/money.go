package domain

import "github.com/shopspring/decimal"

// Prices are stored as major-unit decimals; payment providers that bill in the
// minor currency unit (cents) get their amounts converted here and nowhere
// else. Rounding is half-up to the nearest minor unit.

func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// MajorUnitString formats a minor-unit amount the way redirect-style providers
// expect it on the wire, e.g. 1999 -> "19.99".
func MajorUnitString(minor int64) string {
	return FromMinorUnits(minor).StringFixed(2)
}
