// Package ratelimit throttles inbound messages per phone number.
package ratelimit

import (
	"context"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a key may perform another action inside the window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
