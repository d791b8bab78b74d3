// Package amount provides the exact monetary value type used across the
// ledger. Values carry up to four fractional digits; arithmetic is exact
// decimal arithmetic with no floating-point error.
package amount

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPrecision is the maximum number of fractional digits an amount may
// carry. Input with more digits is rejected at parse time, never rounded.
const MaxPrecision = 4

var (
	// ErrInvalidFormat reports text that is not a plain decimal number.
	ErrInvalidFormat = errors.New("invalid amount format")

	// ErrInvalidPrecision reports more than MaxPrecision fractional digits.
	ErrInvalidPrecision = errors.New("invalid amount precision")
)

// Amount is an exact decimal monetary value.
type Amount struct {
	d decimal.Decimal
}

// Zero returns the zero amount at scale MaxPrecision.
func Zero() Amount {
	return Amount{d: decimal.New(0, -MaxPrecision)}
}

// Parse converts decimal text into an Amount. Scientific notation and
// malformed text fail with ErrInvalidFormat; more than MaxPrecision
// fractional digits fail with ErrInvalidPrecision.
func Parse(text string) (Amount, error) {
	if strings.ContainsAny(text, "eE") {
		return Amount{}, ErrInvalidFormat
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Amount{}, ErrInvalidFormat
	}
	if d.Exponent() < -MaxPrecision {
		return Amount{}, ErrInvalidPrecision
	}
	return Amount{d: d}, nil
}

// MustParse is Parse for compile-time-known literals; it panics on error.
func MustParse(text string) Amount {
	a, err := Parse(text)
	if err != nil {
		panic("amount: " + text + ": " + err.Error())
	}
	return a
}

// Add returns a + b exactly.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b exactly.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports exact decimal equality.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool {
	return a.d.GreaterThan(b.d)
}

// IsNegative reports a < 0.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// String renders the exact decimal text, never scientific notation.
func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return a.d.MarshalJSON()
}

// UnmarshalJSON decodes an amount previously written by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.d.UnmarshalJSON(data)
}
