// Package money is the only place amounts cross between decimal major units
// (the local store) and integer minor units (the payment provider).
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

func init() {
	// amounts render as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// ToMinor converts a major-unit amount to cents, rounding to the nearest cent.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinor converts cents back to a major-unit amount with two decimals.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Round2 rounds half away from zero to two decimals.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// IsCents reports whether amount has no more than two decimal places.
func IsCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}
