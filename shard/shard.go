// Package shard implements the router actor that fans incoming requests
// out across account managers by a consistent hash of the account id, so
// each account is always owned by exactly one manager.
package shard

import (
	"context"
	"errors"

	"github.com/txstream/accounts/accountmanager"
	"github.com/txstream/accounts/actor"
	"github.com/txstream/accounts/hashring"
	"github.com/txstream/accounts/internal/metrics"
	"github.com/txstream/accounts/internal/xlog"
)

// ErrNoShardAvailable is returned when the ring has no managers registered.
var ErrNoShardAvailable = errors.New("shard: no shard available")

// stage is the metrics label the router reports its own throughput and
// mailbox depth under.
const stage = "router"

// Request is accountmanager.Request, forwarded unchanged to whichever
// manager owns its account id.
type Request = accountmanager.Request

// Response is the owning manager's response, forwarded unchanged.
type Response = accountmanager.Response

// Client is a handle to the running router.
type Client = actor.Client[Request, Response]

type handler struct {
	ring *hashring.Ring[accountmanager.Client]
	log  xlog.Logger
}

// Spawn starts a router actor over the given set of managers, named only
// for ring placement — name uniqueness is the caller's responsibility.
// reg may be nil to skip metrics.
func Spawn(ctx context.Context, log xlog.Logger, managers map[string]accountmanager.Client, reg *metrics.Registry) Client {
	ring := hashring.New[accountmanager.Client]()
	for name, client := range managers {
		ring.Add(name, client)
	}
	h := &handler{ring: ring, log: log}
	var stats actor.Stats
	client := actor.SpawnObserved[Request, Response](ctx, h, &stats)
	reg.Observe(ctx, stage, &stats, client.Len)
	return client
}

func (h *handler) Handle(ctx context.Context, req Request, reply chan<- Response) {
	owner, err := h.ring.Owner(uint64(req.AccountID))
	if err != nil {
		h.log.Warn("no shard available", "account", req.AccountID)
		reply <- Response{Err: ErrNoShardAvailable}
		return
	}

	go func() {
		resp, err := owner.Send(ctx, req)
		if err != nil {
			reply <- Response{Err: err}
			return
		}
		reply <- resp
	}()
}
