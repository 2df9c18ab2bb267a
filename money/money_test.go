package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAddSumsSameCurrency(t *testing.T) {
	a := New(decimal.RequireFromString("1.5"), Bitcoin)
	b := New(decimal.RequireFromString("2.25"), Bitcoin)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.True(t, sum.Amount.Equal(decimal.RequireFromString("3.75")))
	require.Equal(t, Bitcoin, sum.Currency)
}

func TestAddMismatchedCurrenciesFails(t *testing.T) {
	a := New(decimal.RequireFromString("1.0"), Bitcoin)
	b := New(decimal.RequireFromString("1.0"), OtherCurrency(1))

	_, err := a.Add(b)
	require.ErrorIs(t, err, ErrMismatchedCurrencies)
}

func TestAddPastLimitOverflows(t *testing.T) {
	a := New(limit, Bitcoin)
	b := New(decimal.NewFromInt(1), Bitcoin)

	_, err := a.Add(b)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSubDifferenceSameCurrency(t *testing.T) {
	a := New(decimal.RequireFromString("5.0"), Bitcoin)
	b := New(decimal.RequireFromString("2.0"), Bitcoin)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	require.True(t, diff.Amount.Equal(decimal.RequireFromString("3.0")))
}

func TestSubMismatchedCurrenciesFails(t *testing.T) {
	a := New(decimal.RequireFromString("1.0"), Bitcoin)
	b := New(decimal.RequireFromString("1.0"), OtherCurrency(1))

	_, err := a.Sub(b)
	require.ErrorIs(t, err, ErrMismatchedCurrencies)
}

func TestSubPastNegativeLimitUnderflows(t *testing.T) {
	a := New(limit.Neg(), Bitcoin)
	b := New(decimal.NewFromInt(1), Bitcoin)

	_, err := a.Sub(b)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestSubBelowZeroIsNotItselfAnError(t *testing.T) {
	a := New(decimal.RequireFromString("1.0"), Bitcoin)
	b := New(decimal.RequireFromString("2.0"), Bitcoin)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	require.True(t, diff.IsNegative())
}
