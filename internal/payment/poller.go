package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sabordigital/zappedido/internal/order"
)

// Result is the terminal outcome of a payment watch.
type Result string

const (
	ResultApproved Result = "approved"
	ResultRejected Result = "rejected"
	ResultTimeout  Result = "timeout"
)

type watch struct {
	cancel context.CancelFunc
}

// Poller watches payment status for orders in waiting_payment. There is at
// most one active watcher per order; starting a new watch or cancelling stops
// the previous one deterministically.
type Poller struct {
	backend  order.Backend
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	active  map[string]*watch
	stopped bool
	wg      sync.WaitGroup
}

// NewPoller builds a payment status poller.
func NewPoller(backend order.Backend, interval, timeout time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	return &Poller{
		backend:  backend,
		log:      log,
		interval: interval,
		timeout:  timeout,
		active:   make(map[string]*watch),
	}
}

// Watch starts polling the payment status of orderID. The callback fires at
// most once, with the terminal result; a cancelled watch fires nothing. The
// timeout is an absolute deadline measured from this call.
func (p *Poller) Watch(ctx context.Context, orderID string, onResult func(Result)) {
	if onResult == nil {
		return
	}

	watchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	w := &watch{cancel: cancel}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		cancel()
		return
	}
	if prev, ok := p.active[orderID]; ok {
		prev.cancel()
	}
	p.active[orderID] = w
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(watchCtx, w, orderID, onResult)
}

// Cancel stops the active watcher for orderID, if any. No callback fires.
func (p *Poller) Cancel(orderID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.active[orderID]; ok {
		w.cancel()
		delete(p.active, orderID)
	}
}

// Shutdown cancels every active watcher and waits for them to exit.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	for id, w := range p.active {
		w.cancel()
		delete(p.active, id)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Poller) run(ctx context.Context, w *watch, orderID string, onResult func(Result)) {
	defer p.wg.Done()
	defer w.cancel()
	defer p.remove(orderID, w)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.log.Warn("payment wait deadline reached", slog.String("order_id", orderID))
				onResult(ResultTimeout)
			}
			return
		case <-ticker.C:
			status, err := p.backend.GetPaymentStatus(ctx, orderID)
			if err != nil {
				// backend errors mean "not yet resolved", never fatal
				p.log.Warn("payment status check failed", slog.String("order_id", orderID), slog.Any("error", err))
				continue
			}

			switch status {
			case order.PaymentApproved:
				onResult(ResultApproved)
				return
			case order.PaymentRejected:
				onResult(ResultRejected)
				return
			}
		}
	}
}

// remove drops the registry entry only if it still belongs to this watch.
func (p *Poller) remove(orderID string, w *watch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.active[orderID]; ok && current == w {
		delete(p.active, orderID)
	}
}
