// Package actor implements the engine's generic actor runtime: a mailbox
// plus handler loop, typed request/response envelopes, and client handles
// that encapsulate the send-and-await-reply pattern. Every actor in this
// engine (account, manager, shard router, aggregator) is built on top of
// this package rather than rolling its own goroutine-and-channel plumbing.
package actor

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrDisconnected is returned to a caller when its reply channel is closed
// before a response is sent on it: by a handler, or by a Closer when the
// handler loop exits. A request still queued in the mailbox when the loop
// exits, or sent after it exited, gets no reply; Send then returns only
// when its own ctx is done.
var ErrDisconnected = errors.New("actor: disconnected")

// mailboxSize approximates the source's unbounded per-actor queue. The
// specification permits a bounded mailbox as long as callers handle send
// failures the same way they handle receive failures (see SPEC_FULL.md
// §5); a generously sized buffered channel keeps that simple without
// reimplementing a growable queue.
const mailboxSize = 4096

// envelope pairs a request payload with the single-slot reply channel the
// caller is waiting on.
type envelope[Req, Resp any] struct {
	payload Req
	reply   chan Resp
}

// Handler processes one request, sending its result on reply exactly once.
// Handlers for a given actor run one at a time, on that actor's own
// goroutine, so state a handler owns exclusively needs no locking. Handle
// is not required to send before returning — an account actor buffers a
// deposit's reply channel and sends on it later, when its release window
// elapses, rather than synchronously. A reply channel that is closed
// without ever being sent on surfaces as ErrDisconnected to the caller.
type Handler[Req, Resp any] interface {
	Handle(ctx context.Context, req Req, reply chan<- Resp)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[Req, Resp any] func(ctx context.Context, req Req, reply chan<- Resp)

func (f HandlerFunc[Req, Resp]) Handle(ctx context.Context, req Req, reply chan<- Resp) {
	f(ctx, req, reply)
}

// Closer is implemented by actors that hold reply channels past the
// message that delivered them — the account actor's release-window buffer
// is the motivating case. Close is called once, after the handler loop
// exits for any reason, and should close every reply channel still held so
// waiting callers observe ErrDisconnected instead of blocking forever.
type Closer interface {
	Close()
}

// SelfAware is implemented by actors that need to address themselves —
// the account actor schedules a self-directed "accept" message after its
// release window, so it needs a client bound to its own mailbox. The
// runtime calls SetSelf immediately after spawning, before the handler
// loop processes its first message, avoiding any reference cycle back to
// the actor value itself: the client only holds a channel.
type SelfAware[Req, Resp any] interface {
	SetSelf(Client[Req, Resp])
}

// Client is a cheaply cloneable send endpoint bound to one actor's
// mailbox. The zero value is not usable; obtain one from Spawn.
type Client[Req, Resp any] struct {
	mailbox chan envelope[Req, Resp]
}

// Len reports the current mailbox depth, for metrics only — never use it
// to make a correctness decision, since it is stale the instant it's read.
func (c Client[Req, Resp]) Len() int { return len(c.mailbox) }

// Send enqueues payload and blocks until the actor replies, the reply
// channel is closed without a reply (ErrDisconnected), or ctx is done.
func (c Client[Req, Resp]) Send(ctx context.Context, payload Req) (Resp, error) {
	var zero Resp
	reply := make(chan Resp, 1)
	env := envelope[Req, Resp]{payload: payload, reply: reply}

	select {
	case c.mailbox <- env:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return zero, ErrDisconnected
		}
		return resp, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Spawn starts an actor's handler loop on its own goroutine and returns a
// client bound to it. The loop drains the mailbox in arrival order and
// terminates when ctx is cancelled.
func Spawn[Req, Resp any](ctx context.Context, handler Handler[Req, Resp]) Client[Req, Resp] {
	client := Client[Req, Resp]{mailbox: make(chan envelope[Req, Resp], mailboxSize)}
	if sa, ok := handler.(SelfAware[Req, Resp]); ok {
		sa.SetSelf(client)
	}
	go run(ctx, client.mailbox, handler)
	return client
}

func run[Req, Resp any](ctx context.Context, mailbox chan envelope[Req, Resp], handler Handler[Req, Resp]) {
	defer func() {
		if c, ok := handler.(Closer); ok {
			c.Close()
		}
	}()
	for {
		select {
		case env, ok := <-mailbox:
			if !ok {
				return
			}
			handler.Handle(ctx, env.payload, env.reply)
		case <-ctx.Done():
			return
		}
	}
}

// Stats counts messages handled by one actor, read by the metrics layer.
// It is safe for concurrent use; the actor's own goroutine is the only
// writer, readers only ever load.
type Stats struct {
	Handled atomic.Int64
}

// SpawnObserved is Spawn plus a Stats counter incremented after every
// handled message, used by actors whose throughput is exported as a
// Prometheus metric.
func SpawnObserved[Req, Resp any](ctx context.Context, handler Handler[Req, Resp], stats *Stats) Client[Req, Resp] {
	counting := HandlerFunc[Req, Resp](func(ctx context.Context, req Req, reply chan<- Resp) {
		handler.Handle(ctx, req, reply)
		stats.Handled.Add(1)
	})
	client := Client[Req, Resp]{mailbox: make(chan envelope[Req, Resp], mailboxSize)}
	if sa, ok := handler.(SelfAware[Req, Resp]); ok {
		sa.SetSelf(client)
	}
	go func() {
		if c, ok := handler.(Closer); ok {
			defer c.Close()
		}
		run(ctx, client.mailbox, counting)
	}()
	return client
}
