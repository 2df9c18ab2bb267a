// Package ledger implements the pure account state machine: balance,
// per-transaction ledger, and dispute set. It knows nothing about actors,
// channels, or timing — every operation is a synchronous, total function
// from the current state plus a request to either a new state and the
// events it raised, or an error.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/txstream/accounts/money"
)

// AccountID identifies a client's account; TxID identifies a deposit or
// withdrawal, referenced later by dispute/resolve/chargeback.
type AccountID uint32
type TxID uint32

var (
	// ErrTransactionNotFound covers every case where a dispute, resolve, or
	// chargeback targets a tx_id this account cannot act on: the tx was
	// never seen, it is not currently disputed, it is already disputed
	// (disputing twice is rejected rather than treated as a no-op, see
	// DESIGN.md), or it was already charged back.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrNegativeAmount is returned when a withdrawal would drive the
	// available balance below zero.
	ErrNegativeAmount = errors.New("ledger: withdrawal would go negative")
)

// Account is a single client's balance, ledger, and dispute set. It is not
// safe for concurrent use — the account actor that owns one guarantees
// exclusive access.
type Account struct {
	id         AccountID
	balance    money.Money
	ledger     map[TxID]decimal.Decimal
	disputed   txSet
	chargedBack map[TxID]struct{}
	locked     bool
}

// New creates an empty account in the engine's single fixed currency.
func New(id AccountID) *Account {
	return &Account{
		id:          id,
		balance:     money.Zero(money.Bitcoin),
		ledger:      make(map[TxID]decimal.Decimal),
		disputed:    newTxSet(),
		chargedBack: make(map[TxID]struct{}),
	}
}

func (a *Account) ID() AccountID  { return a.id }
func (a *Account) Locked() bool   { return a.locked }
func (a *Account) Balance() money.Money { return a.balance }

// Seen reports whether tx has already been applied to this account's
// ledger, for callers that defer work until a tx is accepted. It returns
// false both for a tx that never arrived and for one that is still
// buffered by the caller.
func (a *Account) Seen(tx TxID) bool {
	_, ok := a.ledger[tx]
	return ok
}

// Held returns the sum of ledger deltas for every currently disputed
// transaction — kept as a method so tests can assert the invariant
// directly against Account state rather than only through events.
func (a *Account) Held() decimal.Decimal {
	held := decimal.Zero
	for tx := range a.disputed {
		held = held.Add(a.ledger[tx])
	}
	return held
}

// Deposit credits amount under tx, failing on currency mismatch or
// overflow. A duplicate tx overwrites the ledger entry previously recorded
// under it, while the balance keeps the earlier credit as well — the
// account actor's release window is what keeps a given tx from reaching
// here twice in practice.
func (a *Account) Deposit(tx TxID, amount money.Money) (Result, error) {
	sum, err := a.balance.Add(amount)
	if err != nil {
		return Result{}, fmt.Errorf("deposit tx %d: %w", tx, err)
	}
	a.balance = sum
	a.ledger[tx] = amount.Amount
	return a.raiseUpdated(tx), nil
}

// Withdraw debits amount under tx, failing on currency mismatch,
// underflow, or if the result would be negative.
func (a *Account) Withdraw(tx TxID, amount money.Money) (Result, error) {
	diff, err := a.balance.Sub(amount)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw tx %d: %w", tx, err)
	}
	if diff.IsNegative() {
		return Result{}, fmt.Errorf("withdraw tx %d: %w", tx, ErrNegativeAmount)
	}
	a.balance = diff
	a.ledger[tx] = amount.Amount.Neg()
	return a.raiseUpdated(tx), nil
}

// Dispute moves tx's ledger amount from available to held. Disputing a tx
// that does not exist, is already disputed, or was already charged back
// all fail with ErrTransactionNotFound.
func (a *Account) Dispute(tx TxID) (Result, error) {
	if _, done := a.chargedBack[tx]; done {
		return Result{}, fmt.Errorf("dispute tx %d: %w", tx, ErrTransactionNotFound)
	}
	delta, ok := a.ledger[tx]
	if !ok {
		return Result{}, fmt.Errorf("dispute tx %d: %w", tx, ErrTransactionNotFound)
	}
	if a.disputed.Contains(tx) {
		return Result{}, fmt.Errorf("dispute tx %d: %w", tx, ErrTransactionNotFound)
	}
	diff, err := a.balance.Sub(money.New(delta, a.balance.Currency))
	if err != nil {
		return Result{}, fmt.Errorf("dispute tx %d: %w", tx, err)
	}
	a.balance = diff
	a.disputed.Add(tx)
	return a.raiseUpdated(tx), nil
}

// Resolve returns a disputed tx's amount to available, failing
// ErrTransactionNotFound if tx is not currently disputed.
func (a *Account) Resolve(tx TxID) (Result, error) {
	if !a.disputed.Contains(tx) {
		return Result{}, fmt.Errorf("resolve tx %d: %w", tx, ErrTransactionNotFound)
	}
	delta := a.ledger[tx]
	sum, err := a.balance.Add(money.New(delta, a.balance.Currency))
	if err != nil {
		return Result{}, fmt.Errorf("resolve tx %d: %w", tx, err)
	}
	a.balance = sum
	a.disputed.Remove(tx)
	return a.raiseUpdated(tx), nil
}

// Chargeback discards a disputed tx's held amount for good and locks the
// account. Locked accounts still accept further operations — locking is
// reported to callers, never enforced here.
func (a *Account) Chargeback(tx TxID) (Result, error) {
	if !a.disputed.Contains(tx) {
		return Result{}, fmt.Errorf("chargeback tx %d: %w", tx, ErrTransactionNotFound)
	}
	a.disputed.Remove(tx)
	a.chargedBack[tx] = struct{}{}
	a.locked = true
	return a.raiseUpdated(tx), nil
}

func (a *Account) raiseUpdated(tx TxID) Result {
	ev := Event{
		AccountID: a.id,
		TxID:      tx,
		Available: a.balance.Amount,
		Held:      a.Held(),
		Locked:    a.locked,
	}
	return Result{Events: []Event{ev}}
}
