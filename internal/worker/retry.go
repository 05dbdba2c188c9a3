package worker

import (
	"math"
	"time"
)

const (
	defaultMaxRetries    = 5
	defaultInitialDelay  = 30 * time.Second
	defaultMaxDelay      = 30 * time.Minute
	defaultBackoffFactor = 2
)

// RetryPolicy spaces out redelivery attempts for a single booking.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter spreads each delay by up to this fraction in either direction
	// so bookings that failed together do not hit the chat channel together.
	Jitter float64
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultMaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = defaultInitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = defaultMaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = defaultBackoffFactor
	}
	if r.Jitter < 0 {
		r.Jitter = 0
	}
	if r.Jitter >= 1 {
		r.Jitter = 0.99
	}
	return r
}

// Exhausted reports whether a booking with this many failed attempts
// should be given up.
func (r RetryPolicy) Exhausted(failures int) bool {
	return failures >= r.MaxRetries
}

// Backoff returns the delay after the given number of failed attempts,
// capped at MaxDelay.
func (r RetryPolicy) Backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(failures-1))
	if delay > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(delay)
}

// NextAttempt returns when a booking is due again. roll is a uniform
// sample in [0, 1); 0.5 yields the unjittered backoff.
func (r RetryPolicy) NextAttempt(now time.Time, failures int, roll float64) time.Time {
	base := r.Backoff(failures)
	offset := time.Duration(float64(base) * r.Jitter * (2*roll - 1))
	return now.Add(base + offset)
}
