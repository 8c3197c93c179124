package ratelimit

import (
	"time"
)

// Rules holds the per-phone flood limits applied to inbound messages.
type Rules struct {
	limit     int
	window    time.Duration
	whitelist map[string]struct{}
}

// NewRules constructs rate limiting rules. Whitelisted phones bypass limits
// entirely (staff numbers, monitoring probes).
func NewRules(limit int, window time.Duration, whitelist []string) *Rules {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}

	wl := make(map[string]struct{}, len(whitelist))
	for _, phone := range whitelist {
		wl[phone] = struct{}{}
	}

	return &Rules{limit: limit, window: window, whitelist: wl}
}

// IsWhitelisted returns true if the phone bypasses rate limits.
func (r *Rules) IsWhitelisted(phone string) bool {
	_, ok := r.whitelist[phone]
	return ok
}

// PerUser returns the per-phone limit and sliding window.
func (r *Rules) PerUser() (int, time.Duration) {
	return r.limit, r.window
}
