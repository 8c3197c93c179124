package errors

import (
	"errors"
	"sync"
	"time"
)

const (
	failureThreshold = 5
	openDuration     = 30 * time.Second
	halfOpenProbes   = 2
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var errCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a failing upstream after consecutive errors.
// After openDuration it lets a couple of probe requests through; one success
// closes the circuit, one failure reopens it.
type CircuitBreaker struct {
	mu       sync.Mutex
	state    State
	failures int
	probes   int
	openedAt time.Time
}

// NewCircuitBreaker builds a breaker in the closed state.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{state: StateClosed}
}

// Call runs fn unless the circuit is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()
	cb.record(err == nil)
	return err
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) < openDuration {
			return errCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		fallthrough

	case StateHalfOpen:
		if cb.probes >= halfOpenProbes {
			return errCircuitOpen
		}
		cb.probes++
	}

	return nil
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if ok {
		cb.state = StateClosed
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= failureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.failures = 0
	}
}
