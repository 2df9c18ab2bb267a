// Package accountactor wraps one ledger.Account behind the actor runtime,
// implementing the out-of-order reception protocol: deposits and
// withdrawals sit in a short release-window buffer so a later-numbered tx
// that happens to arrive first does not corrupt the account's history, and
// disputes that target a not-yet-accepted tx wait alongside it rather than
// failing outright.
package accountactor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/txstream/accounts/actor"
	"github.com/txstream/accounts/eventbus"
	"github.com/txstream/accounts/internal/metrics"
	"github.com/txstream/accounts/internal/xlog"
	"github.com/txstream/accounts/ledger"
	"github.com/txstream/accounts/money"
)

// stage is the metrics label every account actor reports under. Account
// ids are unbounded, so individual actors are not labelled separately —
// only their aggregate throughput and mailbox depth are reported.
const stage = "account"

// DefaultWindow is the release window applied before a buffered
// deposit/withdrawal is accepted, per the source's out-of-order protocol.
const DefaultWindow = 100 * time.Millisecond

// Op identifies which ledger operation a Request carries.
type Op int

const (
	Deposit Op = iota
	Withdraw
	Dispute
	Resolve
	Chargeback
	accept // self-directed only, never sent by a client
)

// Request is the single envelope type accepted by an account actor's
// mailbox, carrying whichever fields its Op needs.
type Request struct {
	Op     Op
	TxID   ledger.TxID
	Amount money.Money
}

// Response is what every Request eventually receives, after Deposit and
// Withdraw have possibly waited out the release window.
type Response struct {
	Events []ledger.Event
	Err    error
}

// Client is a handle to one running account actor.
type Client = actor.Client[Request, Response]

// pending is a buffered deposit/withdraw awaiting release.
type pending struct {
	txID  ledger.TxID
	req   Request
	reply chan<- Response
}

// waiter is a dispute/resolve/chargeback deferred until its target tx_id
// is accepted.
type waiter struct {
	req   Request
	reply chan<- Response
}

type handler struct {
	account *ledger.Account
	bus     *eventbus.Bus[ledger.Event]
	window  time.Duration
	log     xlog.Logger

	self actor.Client[Request, Response]

	buffer   []pending
	deferred map[ledger.TxID][]waiter
}

// Spawn starts an account actor for id and returns a client bound to it.
// The actor runs until ctx is cancelled. reg may be nil to skip metrics.
func Spawn(ctx context.Context, id ledger.AccountID, bus *eventbus.Bus[ledger.Event], log xlog.Logger, reg *metrics.Registry) Client {
	return SpawnWindow(ctx, id, bus, log, DefaultWindow, reg)
}

// SpawnWindow is Spawn with an explicit release window, mainly for tests
// that want the protocol to settle faster than DefaultWindow.
func SpawnWindow(ctx context.Context, id ledger.AccountID, bus *eventbus.Bus[ledger.Event], log xlog.Logger, window time.Duration, reg *metrics.Registry) Client {
	h := &handler{
		account:  ledger.New(id),
		bus:      bus,
		window:   window,
		log:      log.With("account", id),
		deferred: make(map[ledger.TxID][]waiter),
	}
	var stats actor.Stats
	client := actor.SpawnObserved[Request, Response](ctx, h, &stats)
	reg.Observe(ctx, stage, &stats, client.Len)
	return client
}

func (h *handler) SetSelf(c actor.Client[Request, Response]) { h.self = c }

func (h *handler) Handle(ctx context.Context, req Request, reply chan<- Response) {
	switch req.Op {
	case Deposit, Withdraw:
		h.bufferEntry(ctx, pending{txID: req.TxID, req: req, reply: reply})
	case accept:
		h.acceptSmallest()
		reply <- Response{}
	case Dispute, Resolve, Chargeback:
		h.handleTargeted(req, reply)
	default:
		reply <- Response{Err: fmt.Errorf("accountactor: unknown op %d", req.Op)}
	}
}

// bufferEntry inserts e into the sorted buffer, overwriting any existing
// entry for the same tx_id (later arrival wins), and schedules its accept.
func (h *handler) bufferEntry(ctx context.Context, e pending) {
	idx := sort.Search(len(h.buffer), func(i int) bool { return h.buffer[i].txID >= e.txID })
	if idx < len(h.buffer) && h.buffer[idx].txID == e.txID {
		close(h.buffer[idx].reply)
		h.buffer[idx] = e
	} else {
		h.buffer = append(h.buffer, pending{})
		copy(h.buffer[idx+1:], h.buffer[idx:])
		h.buffer[idx] = e
	}

	self := h.self
	time.AfterFunc(h.window, func() {
		self.Send(ctx, Request{Op: accept})
	})
}

// acceptSmallest pops the lowest-tx_id buffered entry, applies it, and
// drains any disputes that were waiting on that tx_id.
func (h *handler) acceptSmallest() {
	if len(h.buffer) == 0 {
		return
	}
	e := h.buffer[0]
	h.buffer = h.buffer[1:]

	h.apply(e.req, e.reply)
	h.drainDeferred(e.txID)
}

// handleTargeted routes a dispute/resolve/chargeback: if its target tx_id
// has not yet been accepted into the ledger (whether still buffered or not
// seen at all), it waits in the deferred list until acceptSmallest drains
// it; otherwise it is applied immediately against current account state.
func (h *handler) handleTargeted(req Request, reply chan<- Response) {
	if !h.account.Seen(req.TxID) {
		h.deferred[req.TxID] = append(h.deferred[req.TxID], waiter{req: req, reply: reply})
		return
	}
	h.apply(req, reply)
}

func (h *handler) drainDeferred(tx ledger.TxID) {
	waiters := h.deferred[tx]
	delete(h.deferred, tx)
	for _, w := range waiters {
		h.apply(w.req, w.reply)
	}
}

func (h *handler) apply(req Request, reply chan<- Response) {
	var (
		res ledger.Result
		err error
	)
	switch req.Op {
	case Deposit:
		res, err = h.account.Deposit(req.TxID, req.Amount)
	case Withdraw:
		res, err = h.account.Withdraw(req.TxID, req.Amount)
	case Dispute:
		res, err = h.account.Dispute(req.TxID)
	case Resolve:
		res, err = h.account.Resolve(req.TxID)
	case Chargeback:
		res, err = h.account.Chargeback(req.TxID)
	}
	if err != nil {
		h.log.Debug("rejected", "op", req.Op, "tx", req.TxID, "err", err)
		reply <- Response{Err: err}
		return
	}
	for _, ev := range res.Events {
		h.bus.Publish(ev)
	}
	reply <- Response{Events: res.Events}
}

// Close implements actor.Closer: any reply channel still held when the
// actor shuts down is closed so its waiting caller observes
// actor.ErrDisconnected instead of blocking forever.
func (h *handler) Close() {
	for _, e := range h.buffer {
		close(e.reply)
	}
	h.buffer = nil
	for tx, waiters := range h.deferred {
		for _, w := range waiters {
			close(w.reply)
		}
		delete(h.deferred, tx)
	}
}
