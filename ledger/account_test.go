package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/txstream/accounts/money"
)

func bitcoin(amount string) money.Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return money.New(d, money.Bitcoin)
}

func TestDepositCreditsBalance(t *testing.T) {
	a := New(1)
	_, err := a.Deposit(0, bitcoin("1.0"))
	require.NoError(t, err)
	require.True(t, a.Balance().Amount.Equal(decimal.RequireFromString("1.0")))
}

func TestWithdrawExactBalanceLeavesZero(t *testing.T) {
	a := New(1)
	_, err := a.Deposit(0, bitcoin("1.0"))
	require.NoError(t, err)
	_, err = a.Withdraw(1, bitcoin("1.0"))
	require.NoError(t, err)
	require.True(t, a.Balance().IsZero())
}

func TestWithdrawPastBalanceFails(t *testing.T) {
	a := New(1)
	_, err := a.Deposit(0, bitcoin("1.0"))
	require.NoError(t, err)
	_, err = a.Withdraw(1, bitcoin("2.0"))
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestDisputeOfUnknownTxFails(t *testing.T) {
	a := New(1)
	_, err := a.Dispute(99)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestDisputeTwiceIsRejected(t *testing.T) {
	a := New(1)
	_, err := a.Deposit(0, bitcoin("1.0"))
	require.NoError(t, err)
	_, err = a.Dispute(0)
	require.NoError(t, err)
	_, err = a.Dispute(0)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

// S3 — deposit/dispute/resolve round trip.
func TestDepositDisputeResolveRoundTrips(t *testing.T) {
	a := New(1)
	_, err := a.Deposit(10, bitcoin("3.0"))
	require.NoError(t, err)
	before := a.Balance()

	_, err = a.Dispute(10)
	require.NoError(t, err)
	require.True(t, a.Balance().IsZero())
	require.True(t, a.Held().Equal(decimal.RequireFromString("3.0")))

	_, err = a.Resolve(10)
	require.NoError(t, err)
	require.True(t, a.Balance().Amount.Equal(before.Amount))
	require.True(t, a.Held().IsZero())
	require.False(t, a.Locked())
}

// S4 — deposit/deposit/dispute/chargeback.
func TestDepositDisputeChargebackLocksAccount(t *testing.T) {
	a := New(2)
	_, err := a.Deposit(20, bitcoin("5.0"))
	require.NoError(t, err)
	_, err = a.Deposit(21, bitcoin("2.0"))
	require.NoError(t, err)

	_, err = a.Dispute(20)
	require.NoError(t, err)

	_, err = a.Chargeback(20)
	require.NoError(t, err)

	require.True(t, a.Balance().Amount.Equal(decimal.RequireFromString("2.0")))
	require.True(t, a.Held().IsZero())
	require.True(t, a.Locked())
}

func TestDisputeAfterChargebackFails(t *testing.T) {
	a := New(3)
	_, err := a.Deposit(30, bitcoin("1.0"))
	require.NoError(t, err)
	_, err = a.Dispute(30)
	require.NoError(t, err)
	_, err = a.Chargeback(30)
	require.NoError(t, err)

	_, err = a.Dispute(30)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestResolveWithoutDisputeFails(t *testing.T) {
	a := New(1)
	_, err := a.Deposit(0, bitcoin("1.0"))
	require.NoError(t, err)
	_, err = a.Resolve(0)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestMismatchedCurrencyFails(t *testing.T) {
	a := New(1)
	other := money.New(decimal.RequireFromString("1.0"), money.OtherCurrency(7))
	_, err := a.Deposit(0, other)
	require.True(t, errors.Is(err, money.ErrMismatchedCurrencies))
}

func TestEventReflectsPostMutationState(t *testing.T) {
	a := New(1)
	res, err := a.Deposit(0, bitcoin("1.0"))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	require.True(t, ev.Available.Equal(a.Balance().Amount))
	require.True(t, ev.Held.Equal(a.Held()))
	require.Equal(t, a.Locked(), ev.Locked)
}
