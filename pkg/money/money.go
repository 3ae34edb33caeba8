// Package money holds the currency arithmetic shared by pricing, discounts
// and the payment gateway. Amounts are decimals in major units (rupees) and
// are rounded half away from zero to two places.
package money

import "github.com/shopspring/decimal"

const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds to two decimal places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// FromFloat converts a stored float64 amount and rounds it.
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

// Float converts back to float64 for BSON/JSON storage.
func Float(d decimal.Decimal) float64 {
	f, _ := Round(d).Float64()
	return f
}

// Multiply returns price * qty rounded.
func Multiply(price decimal.Decimal, qty int) decimal.Decimal {
	return Round(price.Mul(decimal.NewFromInt(int64(qty))))
}

// Percent returns pct percent of amount, rounded.
func Percent(amount decimal.Decimal, pct float64) decimal.Decimal {
	return Round(amount.Mul(decimal.NewFromFloat(pct)).Div(hundred))
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// ToMinor converts to the smallest currency unit (paise) as the gateway expects.
func ToMinor(d decimal.Decimal) int64 {
	return Round(d).Mul(hundred).IntPart()
}

// FromMinor converts a gateway amount in the smallest unit back to major units.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}

// Equal compares two amounts after rounding.
func Equal(a, b decimal.Decimal) bool {
	return Round(a).Equal(Round(b))
}
