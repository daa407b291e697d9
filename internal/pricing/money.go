package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (cents, bani).
type Money int64

var hundred = decimal.NewFromInt(100)

// currencies whose minor unit is not 1/100 of the major unit.
var currencyExponent = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"HUF": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// Exponent reports how many decimal places the currency's major unit carries.
func Exponent(currency string) int32 {
	if exp, ok := currencyExponent[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// Times multiplies a per-ticket amount by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Decimal returns the amount in major units for the given currency.
func (m Money) Decimal(currency string) decimal.Decimal {
	return decimal.New(int64(m), -Exponent(currency))
}

// Amount renders the amount in major units with the currency's precision and no code.
func (m Money) Amount(currency string) string {
	return m.Decimal(currency).StringFixed(Exponent(currency))
}

// Format renders the amount in major units followed by the currency code, e.g. "12.50 RON".
func (m Money) Format(currency string) string {
	s := m.Amount(currency)
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}

// ParseMoney converts a major-unit string such as "12.5" into minor units.
// Extra precision beyond the currency's minor unit is rounded half away from zero.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money(d.Shift(Exponent(currency)).Round(0).IntPart()), nil
}

// percentOf returns round(amount × pct / 100) in whole minor units.
func percentOf(amount Money, pct decimal.Decimal) Money {
	if amount == 0 || pct.IsZero() {
		return 0
	}
	return Money(decimal.NewFromInt(int64(amount)).Mul(pct).Div(hundred).Round(0).IntPart())
}

func maxMoney(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

func minMoney(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}
