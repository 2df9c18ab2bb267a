// Package aggregator folds the account event stream into a queryable
// snapshot. Its actor loop races event intake from the bus against query
// intake from its own mailbox, so a query never observes a half-applied
// event and an event is never applied mid-query.
package aggregator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/txstream/accounts/eventbus"
	"github.com/txstream/accounts/internal/xlog"
	"github.com/txstream/accounts/ledger"
)

// Snapshot is one account's aggregated state at query time.
type Snapshot struct {
	AccountID ledger.AccountID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Aggregator subscribes to a bus of ledger events and exposes a
// point-in-time read of every account it has seen.
type Aggregator struct {
	bus  *eventbus.Bus[ledger.Event]
	log  xlog.Logger
	sub  *eventbus.Subscription[ledger.Event]
	done chan struct{}

	queries chan func(map[ledger.AccountID]Snapshot)
}

// Start subscribes to bus and begins folding events until ctx is done.
func Start(ctx context.Context, bus *eventbus.Bus[ledger.Event], log xlog.Logger) *Aggregator {
	a := &Aggregator{
		bus:     bus,
		log:     log,
		sub:     bus.Subscribe(),
		done:    make(chan struct{}),
		queries: make(chan func(map[ledger.AccountID]Snapshot), 64),
	}
	go a.run(ctx)
	return a
}

func (a *Aggregator) run(ctx context.Context) {
	defer close(a.done)
	defer a.sub.Close()

	state := make(map[ledger.AccountID]Snapshot)
	eventCh := make(chan ledger.Event)
	go a.pump(ctx, eventCh)

	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			apply(state, ev)
		case q := <-a.queries:
			q(state)
		case <-ctx.Done():
			return
		}
	}
}

// pump translates blocking bus Recv calls into a plain channel the run
// loop can select over alongside query intake, skipping ErrLagged gaps.
func (a *Aggregator) pump(ctx context.Context, out chan<- ledger.Event) {
	defer close(out)
	for {
		ev, err := a.sub.Recv(ctx)
		switch {
		case err == nil:
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		case ctx.Err() != nil:
			return
		default:
			a.log.Warn("aggregator lagged", "err", err)
		}
	}
}

func apply(state map[ledger.AccountID]Snapshot, ev ledger.Event) {
	total := ev.Available.Add(ev.Held)
	state[ev.AccountID] = Snapshot{
		AccountID: ev.AccountID,
		Available: ev.Available,
		Held:      ev.Held,
		Total:     total,
		Locked:    ev.Locked,
	}
}

// Call runs fn against the current state on the aggregator's own
// goroutine, blocking until it completes. Use it for read-only snapshot
// queries; fn must not retain the map it is given.
func (a *Aggregator) Call(ctx context.Context, fn func(map[ledger.AccountID]Snapshot)) error {
	done := make(chan struct{})
	wrapped := func(state map[ledger.AccountID]Snapshot) {
		fn(state)
		close(done)
	}
	select {
	case a.queries <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns every account's current state, in unspecified order.
func (a *Aggregator) Snapshot(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := a.Call(ctx, func(state map[ledger.AccountID]Snapshot) {
		out = make([]Snapshot, 0, len(state))
		for _, s := range state {
			out = append(out, s)
		}
	})
	return out, err
}
