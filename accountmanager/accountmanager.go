// Package accountmanager owns the set of account actors for one shard,
// lazily spawning one per account id on first reference and forwarding
// requests to it without blocking other accounts' traffic.
package accountmanager

import (
	"context"
	"time"

	"github.com/txstream/accounts/accountactor"
	"github.com/txstream/accounts/actor"
	"github.com/txstream/accounts/eventbus"
	"github.com/txstream/accounts/internal/metrics"
	"github.com/txstream/accounts/internal/xlog"
	"github.com/txstream/accounts/ledger"
)

// Request addresses one account actor's Request by account id.
type Request struct {
	AccountID ledger.AccountID
	Inner     accountactor.Request
}

// Response is the targeted account actor's response, forwarded unchanged.
type Response = accountactor.Response

// Client is a handle to one running account manager.
type Client = actor.Client[Request, Response]

type handler struct {
	spawnCtx context.Context
	bus      *eventbus.Bus[ledger.Event]
	log      xlog.Logger
	window   time.Duration
	reg      *metrics.Registry

	accounts map[ledger.AccountID]accountactor.Client
}

// Spawn starts a manager for one shard, using accountactor.DefaultWindow
// for every account actor it spawns. reg may be nil to skip metrics;
// stage labels this manager's own requests-handled/mailbox-depth metrics.
func Spawn(ctx context.Context, bus *eventbus.Bus[ledger.Event], log xlog.Logger, reg *metrics.Registry, stage string) Client {
	return SpawnWindow(ctx, bus, log, accountactor.DefaultWindow, reg, stage)
}

// SpawnWindow is Spawn with an explicit per-account release window.
func SpawnWindow(ctx context.Context, bus *eventbus.Bus[ledger.Event], log xlog.Logger, window time.Duration, reg *metrics.Registry, stage string) Client {
	h := &handler{
		spawnCtx: ctx,
		bus:      bus,
		log:      log,
		window:   window,
		reg:      reg,
		accounts: make(map[ledger.AccountID]accountactor.Client),
	}
	var stats actor.Stats
	client := actor.SpawnObserved[Request, Response](ctx, h, &stats)
	reg.Observe(ctx, stage, &stats, client.Len)
	return client
}

// Handle looks up (or lazily spawns) the target account actor and forwards
// the request to it on a separate goroutine, so a slow or buffered account
// never holds up requests addressed to a different account.
func (h *handler) Handle(ctx context.Context, req Request, reply chan<- Response) {
	client, ok := h.accounts[req.AccountID]
	if !ok {
		client = accountactor.SpawnWindow(h.spawnCtx, req.AccountID, h.bus, h.log, h.window, h.reg)
		h.accounts[req.AccountID] = client
		h.log.Debug("spawned account actor", "account", req.AccountID)
	}

	go func() {
		resp, err := client.Send(ctx, req.Inner)
		if err != nil {
			reply <- Response{Err: err}
			return
		}
		reply <- resp
	}()
}
