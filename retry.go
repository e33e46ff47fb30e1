package qdispatch

import (
	"math"
	"time"
)

// RetryPolicy defines how often a failing handler is re-run for one task.
type RetryPolicy struct {
	MaxAttempts int
	Strategy    RetryStrategy
	Filter      func(error) bool
}

// RetryStrategy computes the pause before a retry.
type RetryStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay on every attempt.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := eb.Initial * time.Duration(math.Pow(2, float64(attempt-1)))
	if eb.Max > 0 && delay > eb.Max {
		return eb.Max
	}
	return delay
}

func newRetryPolicy(cfg *Config) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: max(cfg.RetryAttempts, 1),
		Strategy:    &ExponentialBackoff{Initial: cfg.RetryBackoff, Max: time.Second},
	}
}

// retryable reports whether err may be retried under this policy.
func (rp *RetryPolicy) retryable(err error) bool {
	return rp.Filter == nil || rp.Filter(err)
}
