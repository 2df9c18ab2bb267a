// Package engine wires the actor pipeline together: an event bus, a fixed
// number of account-manager shards behind a consistent-hash router, and a
// state aggregator subscribed to the bus. It is the one place that knows
// how all the pieces fit, the way the teacher's node-construction code
// wires a chain's plugin, VM, and subsystems into one running process.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/txstream/accounts/accountmanager"
	"github.com/txstream/accounts/aggregator"
	"github.com/txstream/accounts/eventbus"
	"github.com/txstream/accounts/internal/metrics"
	"github.com/txstream/accounts/internal/xlog"
	"github.com/txstream/accounts/ledger"
	"github.com/txstream/accounts/shard"
)

// Config controls how an Engine is constructed. Zero values fall back to
// sane defaults via New.
type Config struct {
	// ShardCount is how many account-manager actors sit behind the router.
	// Each owns a disjoint slice of the hash ring.
	ShardCount int
	// Window is the release window each account actor waits before
	// accepting a buffered deposit or withdrawal.
	Window time.Duration
	// BusCapacity is the per-subscriber event bus buffer size.
	BusCapacity int
	// Log receives the engine's structured log output.
	Log xlog.Logger
	// Registerer receives the engine's Prometheus metrics. Defaults to
	// prometheus.NewRegistry() if nil, so tests never collide with the
	// global default registry.
	Registerer prometheus.Registerer
}

func (c Config) withDefaults() Config {
	if c.ShardCount <= 0 {
		c.ShardCount = 4
	}
	if c.Window <= 0 {
		c.Window = 100 * time.Millisecond
	}
	if c.BusCapacity <= 0 {
		c.BusCapacity = eventbus.DefaultCapacity
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.NewRegistry()
	}
	return c
}

// Engine is a fully wired instance of the processing pipeline, ready to
// accept requests through its router and be queried through its
// aggregator.
type Engine struct {
	router  shard.Client
	agg     *aggregator.Aggregator
	bus     *eventbus.Bus[ledger.Event]
	metrics *metrics.Registry
	log     xlog.Logger
}

// New constructs and starts every actor the engine needs, all scoped to
// ctx: cancelling ctx tears the whole pipeline down.
func New(ctx context.Context, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	log := cfg.Log

	bus := eventbus.New[ledger.Event](cfg.BusCapacity)
	reg := metrics.New(cfg.Registerer)
	bus.SetDropCounter(reg.BusDropped)

	managers := make(map[string]accountmanager.Client, cfg.ShardCount)
	for i := 0; i < cfg.ShardCount; i++ {
		name := fmt.Sprintf("shard-%d", i)
		managers[name] = accountmanager.SpawnWindow(ctx, bus, log.With("shard", name), cfg.Window, reg, name)
	}
	router := shard.Spawn(ctx, log, managers, reg)
	agg := aggregator.Start(ctx, bus, log)

	return &Engine{router: router, agg: agg, bus: bus, metrics: reg, log: log}
}

// Submit routes req to the account actor that owns its account id and
// waits for its response.
func (e *Engine) Submit(ctx context.Context, req shard.Request) (shard.Response, error) {
	return e.router.Send(ctx, req)
}

// Snapshot returns every account's current aggregated state.
func (e *Engine) Snapshot(ctx context.Context) ([]aggregator.Snapshot, error) {
	return e.agg.Snapshot(ctx)
}
