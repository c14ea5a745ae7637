// Package core provides money parsing and handling utilities.
//
// This file converts between decimal amounts, as produced by the classifier,
// and the cents representation every store works with.
package core

import (
	"github.com/shopspring/decimal"
)

// maxAmount bounds accepted amounts well below the int64 cents limit.
var maxAmount = decimal.New(1, 15)

// MaxCents is maxAmount in cents. Stored balances stay within it too, so
// the sum of a balance and any valid delta never overflows int64.
const MaxCents int64 = 100_000_000_000_000_000

// Exponent window for decoded amounts. Anything outside it is either far
// beyond maxAmount or far below a cent, and comparing such values forces
// shopspring/decimal to build huge intermediate numbers.
const (
	minExponent = -20
	maxExponent = 15
)

// MoneyFromDecimal converts d to cents with half-away-from-zero rounding on
// the third decimal place. Zero and negative values are accepted; callers
// apply their own sign rules.
//
// Examples:
//
//	MoneyFromDecimal(12.34)  -> 1234
//	MoneyFromDecimal(12.345) -> 1235
//	MoneyFromDecimal(-50)    -> -5000
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return Money{}, ErrInvalidAmount
	}
	if d.Abs().GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders whole amounts without a fractional part ("50") and
// everything else with two decimals ("12.50").
func (m Money) String() string {
	if m.Cents%100 == 0 {
		return m.Decimal().StringFixed(0)
	}
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// InRange reports whether m lies within [-MaxCents, MaxCents].
func (m Money) InRange() bool {
	return m.Cents >= -MaxCents && m.Cents <= MaxCents
}

// AddChecked is Add that refuses operands or sums outside InRange.
func (m Money) AddChecked(o Money) (Money, error) {
	if !m.InRange() || !o.InRange() {
		return Money{}, ErrInvalidAmount
	}
	sum := m.Add(o)
	if !sum.InRange() {
		return Money{}, ErrInvalidAmount
	}
	return sum, nil
}
