package qdispatch

import (
	"sync"
	"time"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation state
	CircuitOpen                         // Failure state, rejecting tasks
	CircuitHalfOpen                     // Probationary state, allowing limited tasks
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

/*
CircuitBreaker stops dispatching a task kind to its handler after too many
consecutive failures. Tasks arriving while it is open fail fast with
ErrCircuitOpen. After resetTimeout it lets halfOpenMax probe tasks through;
that many successes close it again, any failure reopens it.

The pool keeps one breaker per task kind, shared by all workers.
*/
type CircuitBreaker struct {
	mu               sync.Mutex
	maxFailures      int
	resetTimeout     time.Duration
	halfOpenMax      int
	failureCount     int
	state            CircuitState
	openTime         time.Time
	halfOpenAttempts int
	halfOpenSuccess  int
	now              func() time.Time
}

/*
NewCircuitBreaker creates a closed breaker.

Parameters:
  - maxFailures: Consecutive failures that open the circuit
  - resetTimeout: Time an open circuit waits before probing
  - halfOpenMax: Probe tasks allowed, and successes needed, while half-open

Returns:
  - *CircuitBreaker: A new breaker in the closed state
*/
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  max(halfOpenMax, 1),
		state:        CircuitClosed,
		now:          time.Now,
	}
}

// Allow reports whether a task may run, moving open to half-open once the
// reset timeout has passed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openTime) < cb.resetTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.halfOpenAttempts = 0
		cb.halfOpenSuccess = 0
		fallthrough
	case CircuitHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMax {
			return false
		}
		cb.halfOpenAttempts++
		return true
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.halfOpenMax {
			cb.state = CircuitClosed
			cb.failureCount = 0
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.trip()
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.maxFailures {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// trip must be called with mu held.
func (cb *CircuitBreaker) trip() {
	cb.state = CircuitOpen
	cb.openTime = cb.now()
	cb.failureCount = 0
}
