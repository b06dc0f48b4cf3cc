// Package resilience guards calls to the external Planner and Worker
// adapters with a circuit breaker, so a flaky or down provider degrades
// into fast failures for new task/judge calls instead of piling up
// slow timeouts across the worker pool.
package resilience

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips open after failureThreshold consecutive failures
// and moves to HalfOpen after recoveryTimeout; while HalfOpen every call
// is allowed until a success closes it or a failure reopens it.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            State
	failureCount     int
	failureThreshold int
	recoveryTimeout  time.Duration
	lastFailureTime  time.Time
}

// New creates a CircuitBreaker with the given failure threshold and
// recovery timeout.
func New(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            Closed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Allow reports whether a call may proceed, transitioning Open to
// HalfOpen once the recovery timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.RLock()
	state := cb.state
	lastFailure := cb.lastFailureTime
	cb.mu.RUnlock()

	switch state {
	case Closed:
		return true
	case Open:
		if time.Since(lastFailure) < cb.recoveryTimeout {
			return false
		}
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if cb.state == Open && time.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
			cb.state = HalfOpen
		}
		return cb.state == HalfOpen
	case HalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = Closed
}

// RecordFailure increments the failure count and opens the circuit
// once the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()
	if cb.failureCount >= cb.failureThreshold {
		cb.state = Open
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// FailureCount returns the current consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failureCount
}
