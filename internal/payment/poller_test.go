package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabordigital/zappedido/internal/order"
)

type fakeBackend struct {
	mu       sync.Mutex
	statuses map[string]string
	err      error
	calls    int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{statuses: make(map[string]string)}
}

func (f *fakeBackend) setStatus(orderID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderID] = status
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req order.CreateRequest) (string, error) {
	return "order-1", nil
}

func (f *fakeBackend) GetPaymentStatus(ctx context.Context, orderID string) (string, error) {
	atomic.AddInt64(&f.calls, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}

	status, ok := f.statuses[orderID]
	if !ok {
		return order.PaymentPending, nil
	}
	return status, nil
}

func (f *fakeBackend) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	return "preparing", nil
}

func (f *fakeBackend) statusCalls() int64 {
	return atomic.LoadInt64(&f.calls)
}

func pollerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForResult(t *testing.T, ch <-chan Result, timeout time.Duration) Result {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(timeout):
		t.Fatal("timed out waiting for poll result")
		return ""
	}
}

func TestPollerApproved(t *testing.T) {
	backend := newFakeBackend()
	backend.setStatus("order-1", order.PaymentApproved)

	p := NewPoller(backend, 10*time.Millisecond, time.Second, pollerTestLogger())
	results := make(chan Result, 1)

	p.Watch(context.Background(), "order-1", func(r Result) { results <- r })

	assert.Equal(t, ResultApproved, waitForResult(t, results, time.Second))
}

func TestPollerRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.setStatus("order-1", order.PaymentRejected)

	p := NewPoller(backend, 10*time.Millisecond, time.Second, pollerTestLogger())
	results := make(chan Result, 1)

	p.Watch(context.Background(), "order-1", func(r Result) { results <- r })

	assert.Equal(t, ResultRejected, waitForResult(t, results, time.Second))
}

func TestPollerTimeout(t *testing.T) {
	backend := newFakeBackend() // stays pending forever

	p := NewPoller(backend, 10*time.Millisecond, 80*time.Millisecond, pollerTestLogger())
	results := make(chan Result, 1)

	p.Watch(context.Background(), "order-1", func(r Result) { results <- r })

	assert.Equal(t, ResultTimeout, waitForResult(t, results, time.Second))

	// no further status checks once the deadline fired
	time.Sleep(30 * time.Millisecond)
	calls := backend.statusCalls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, backend.statusCalls())
}

func TestPollerErrorsAreNotTerminal(t *testing.T) {
	backend := newFakeBackend()
	backend.mu.Lock()
	backend.err = errors.New("backend unreachable")
	backend.mu.Unlock()

	p := NewPoller(backend, 10*time.Millisecond, time.Second, pollerTestLogger())
	results := make(chan Result, 1)

	p.Watch(context.Background(), "order-1", func(r Result) { results <- r })

	// let a few failing checks happen, then resolve
	time.Sleep(50 * time.Millisecond)
	backend.mu.Lock()
	backend.err = nil
	backend.statuses["order-1"] = order.PaymentApproved
	backend.mu.Unlock()

	assert.Equal(t, ResultApproved, waitForResult(t, results, time.Second))
}

func TestPollerCancelSuppressesCallback(t *testing.T) {
	backend := newFakeBackend()

	p := NewPoller(backend, 10*time.Millisecond, 120*time.Millisecond, pollerTestLogger())
	results := make(chan Result, 1)

	p.Watch(context.Background(), "order-1", func(r Result) { results <- r })
	time.Sleep(25 * time.Millisecond)
	p.Cancel("order-1")

	select {
	case r := <-results:
		t.Fatalf("expected no callback after cancel, got %s", r)
	case <-time.After(250 * time.Millisecond):
	}

	// cancelled watch must also stop polling the backend
	calls := backend.statusCalls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, backend.statusCalls())
}

func TestPollerSingleWatcherPerOrder(t *testing.T) {
	backend := newFakeBackend()

	p := NewPoller(backend, 10*time.Millisecond, time.Second, pollerTestLogger())

	var first, second int64
	p.Watch(context.Background(), "order-1", func(Result) { atomic.AddInt64(&first, 1) })
	p.Watch(context.Background(), "order-1", func(Result) { atomic.AddInt64(&second, 1) })

	time.Sleep(30 * time.Millisecond)
	backend.setStatus("order-1", order.PaymentApproved)
	time.Sleep(100 * time.Millisecond)

	assert.EqualValues(t, 0, atomic.LoadInt64(&first), "replaced watcher must not fire")
	assert.EqualValues(t, 1, atomic.LoadInt64(&second))
}

func TestPollerShutdown(t *testing.T) {
	backend := newFakeBackend()

	p := NewPoller(backend, 10*time.Millisecond, time.Minute, pollerTestLogger())
	p.Watch(context.Background(), "order-1", func(Result) {})
	p.Watch(context.Background(), "order-2", func(Result) {})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	// watches registered after shutdown are ignored
	fired := make(chan Result, 1)
	p.Watch(context.Background(), "order-3", func(r Result) { fired <- r })
	select {
	case <-fired:
		t.Fatal("watch after shutdown must not run")
	case <-time.After(50 * time.Millisecond):
	}
}
