package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain verifies every actor goroutine this package's own tests spawn
// has exited by the time the test binary finishes, catching a forgotten
// ctx cancellation or a Handle that never replies.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, req int, reply chan<- int) { reply <- req * 2 }

func TestSendReceivesHandlerResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := Spawn[int, int](ctx, echoHandler{})
	resp, err := client.Send(context.Background(), 21)
	require.NoError(t, err)
	require.Equal(t, 42, resp)
}

func TestSendFailsWhenReplyNeverArrivesBeforeDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	defer close(release)
	client := Spawn[int, int](ctx, blockingHandler{release: release})

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer sendCancel()
	_, err := client.Send(sendCtx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingHandler struct{ release chan struct{} }

func (h blockingHandler) Handle(ctx context.Context, req int, reply chan<- int) {
	<-h.release
	reply <- req
}

func TestShutdownLeavesNoGoroutinesBehind(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	h := blockingHandler{release: release}
	client := Spawn[int, int](ctx, h)

	done := make(chan error, 1)
	go func() {
		_, err := client.Send(context.Background(), 1)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send never returned after shutdown")
	}
}

type selfAwareHandler struct {
	self Client[int, int]
	seen chan int
}

func (h *selfAwareHandler) SetSelf(c Client[int, int]) { h.self = c }

func (h *selfAwareHandler) Handle(ctx context.Context, req int, reply chan<- int) {
	if req < 0 {
		h.seen <- req
		reply <- req
		return
	}
	go func() { h.self.Send(context.Background(), -req) }()
	reply <- req
}

func TestSelfAwareActorCanMessageItself(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := &selfAwareHandler{seen: make(chan int, 1)}
	client := Spawn[int, int](ctx, h)

	_, err := client.Send(context.Background(), 5)
	require.NoError(t, err)

	select {
	case v := <-h.seen:
		require.Equal(t, -5, v)
	case <-time.After(time.Second):
		t.Fatal("self-directed message never arrived")
	}
}

type bufferingHandler struct {
	held chan<- int
}

func (h *bufferingHandler) Handle(ctx context.Context, req int, reply chan<- int) {
	h.held = reply
}

func (h *bufferingHandler) Close() {
	if h.held != nil {
		close(h.held)
	}
}

func TestCloserRunsOnShutdownAndDisconnectsHeldReplies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := Spawn[int, int](ctx, &bufferingHandler{})

	done := make(chan error, 1)
	go func() {
		_, err := client.Send(context.Background(), 1)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrDisconnected)
	case <-time.After(time.Second):
		t.Fatal("Send never returned after shutdown")
	}
}

func TestSpawnObservedIncrementsStats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stats Stats
	client := SpawnObserved[int, int](ctx, echoHandler{}, &stats)

	for i := 0; i < 3; i++ {
		_, err := client.Send(context.Background(), i)
		require.NoError(t, err)
	}
	require.Equal(t, int64(3), stats.Handled.Load())
}
