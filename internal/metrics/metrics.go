// Package metrics exposes the engine's Prometheus counters and gauges:
// requests handled per actor stage and events dropped to a lagging bus
// subscriber. It wraps prometheus/client_golang directly rather than the
// teacher's metrics/prometheus gatherer, which bridges an internal
// registry type this module has no equivalent of (see DESIGN.md).
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/txstream/accounts/actor"
)

// pollInterval is how often Observe copies an actor's Stats and mailbox
// depth into this package's Prometheus vectors.
const pollInterval = 250 * time.Millisecond

// Registry groups every metric the engine exports, so callers construct
// one value and pass it down instead of reaching for package-level state.
type Registry struct {
	RequestsHandled *prometheus.CounterVec
	MailboxDepth    *prometheus.GaugeVec
	BusDropped      prometheus.Counter
}

// New registers the engine's metrics on reg and returns a Registry wired
// to it. Pass prometheus.NewRegistry() in tests to avoid collisions with
// the global default registry.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		RequestsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "requests_handled_total",
			Help:      "Number of actor messages handled, by actor stage.",
		}, []string{"stage"}),
		MailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "accounts",
			Name:      "mailbox_depth",
			Help:      "Current mailbox depth, by actor stage.",
		}, []string{"stage"}),
		BusDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "bus_events_dropped_total",
			Help:      "Events dropped to a lagging event bus subscriber.",
		}),
	}
	reg.MustRegister(m.RequestsHandled, m.MailboxDepth, m.BusDropped)
	return m
}

// Observe starts a background reporter that copies stats' handled count
// and depth() into this registry's requests-handled counter and mailbox
// gauge, under the stage label, until ctx is done. r may be nil, in which
// case Observe is a no-op — callers that don't care about metrics (tests,
// mainly) can pass a nil *Registry through unchanged.
func (r *Registry) Observe(ctx context.Context, stage string, stats *actor.Stats, depth func() int) {
	if r == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		var lastHandled int64
		for {
			select {
			case <-ticker.C:
				handled := stats.Handled.Load()
				if delta := handled - lastHandled; delta > 0 {
					r.RequestsHandled.WithLabelValues(stage).Add(float64(delta))
					lastHandled = handled
				}
				r.MailboxDepth.WithLabelValues(stage).Set(float64(depth()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
