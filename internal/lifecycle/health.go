package lifecycle

import (
	"context"
	"errors"
	"log/slog"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ReadyFunc reports whether the application's dependencies are usable.
type ReadyFunc func(ctx context.Context) bool

// Probes implements HealthChecker. Liveness only confirms the process is
// responsive; readiness consults the dependency checks.
type Probes struct {
	log   *slog.Logger
	ready ReadyFunc
}

// NewProbes creates a new Probes instance. ready may be nil, in which case
// readiness always passes.
func NewProbes(log *slog.Logger, ready ReadyFunc) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, ready: ready}
}

// Liveness reports success while the process can answer at all.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness fails when a dependency check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.ready == nil {
		return nil
	}
	if !p.ready(ctx) {
		return errors.New("dependencies are not ready")
	}
	return nil
}
