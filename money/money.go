// Package money implements fixed-precision, currency-tagged decimal
// arithmetic for account balances. Every operation is checked: mixing
// currencies or crossing the configured magnitude bound fails rather than
// silently producing a bad number.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Currency tags a Money value. Two Money values only combine if their tags
// are equal.
type Currency struct {
	code uint64
}

// Bitcoin is the only currency this engine ever processes end to end; the
// specification's non-goals rule out multi-currency arithmetic, but the
// tag is still carried and checked on every operation.
var Bitcoin = Currency{code: 0}

// OtherCurrency returns a currency tag identified by a custom numeric code,
// for tests that want to exercise the mismatched-currency path.
func OtherCurrency(code uint64) Currency {
	return Currency{code: code}
}

var (
	ErrMismatchedCurrencies = errors.New("money: mismatched currencies")
	ErrOverflow             = errors.New("money: overflow")
	ErrUnderflow            = errors.New("money: underflow")
)

// limit bounds the magnitude any Money value in this engine may reach.
// shopspring/decimal's backing big.Int never overflows on its own, so this
// stands in for the checked arithmetic a fixed-width decimal type performs
// natively, while keeping Overflow/Underflow reachable and testable.
var limit = decimal.New(1, 30)

// Money is a currency-tagged decimal amount.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// Zero returns the additive identity in the given currency.
func Zero(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// New wraps an existing decimal amount with a currency tag.
func New(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.Sign() > 0 }
func (m Money) IsNegative() bool { return m.Amount.Sign() < 0 }

// Add returns m+rhs, failing on mismatched currencies or overflow.
func (m Money) Add(rhs Money) (Money, error) {
	if m.Currency != rhs.Currency {
		return Money{}, ErrMismatchedCurrencies
	}
	sum := m.Amount.Add(rhs.Amount)
	if sum.Abs().GreaterThan(limit) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub returns m-rhs, failing on mismatched currencies or underflow. A
// negative result is not itself an error here — callers that must reject
// negative balances (withdraw) check that separately.
func (m Money) Sub(rhs Money) (Money, error) {
	if m.Currency != rhs.Currency {
		return Money{}, ErrMismatchedCurrencies
	}
	diff := m.Amount.Sub(rhs.Amount)
	if diff.Abs().GreaterThan(limit) {
		return Money{}, ErrUnderflow
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

func (m Money) String() string { return m.Amount.String() }
