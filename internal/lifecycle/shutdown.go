package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Shutdown runs registered teardown hooks when the process exits. Hooks run
// sequentially in reverse registration order, so dependents stop before the
// resources they use: poller before redis, worker before the job broker.
type Shutdown struct {
	mu    sync.Mutex
	hooks []hook
	log   *slog.Logger
}

// NewShutdown constructs a shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named teardown hook. Later registrations run first.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// Execute runs the hooks and collects their failures. A failing hook does not
// stop the remaining ones.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		hookStart := time.Now()
		if err := h.fn(ctx); err != nil {
			s.log.Error("shutdown hook failed", slog.String("hook", h.name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}

		s.log.Info("shutdown hook completed",
			slog.String("hook", h.name),
			slog.Duration("elapsed", time.Since(hookStart)),
		)
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}
