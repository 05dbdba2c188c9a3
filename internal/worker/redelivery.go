package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"ticketify/internal/clock"
	"ticketify/internal/domain"

	"github.com/rs/zerolog"
)

// Redeliverer is the part of the admission service the worker drives.
type Redeliverer interface {
	FailedDeliveries(ctx context.Context) ([]string, error)
	Redeliver(ctx context.Context, bookingID string) error
}

type attemptState struct {
	attempts  int
	nextAt    time.Time
	exhausted bool
}

// RedeliveryWorker periodically retries notifications whose delivery
// failed, backing off per booking.
type RedeliveryWorker struct {
	target      Redeliverer
	retryPolicy RetryPolicy
	interval    time.Duration
	clock       clock.Clock
	roll        func() float64
	state       map[string]*attemptState
	logger      *zerolog.Logger
}

// NewRedeliveryWorker builds a worker; zero policy fields take defaults.
func NewRedeliveryWorker(target Redeliverer, retry RetryPolicy, interval time.Duration, clk clock.Clock, logger *zerolog.Logger) *RedeliveryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if clk == nil {
		clk = clock.NewSystem()
	}

	return &RedeliveryWorker{
		target:      target,
		retryPolicy: retry.withDefaults(),
		interval:    interval,
		clock:       clk,
		roll:        rand.Float64,
		state:       make(map[string]*attemptState),
		logger:      logger,
	}
}

// Start runs until ctx is done.
func (w *RedeliveryWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("redelivery worker started")
	defer w.logger.Info().Msg("redelivery worker stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce makes one pass over failed deliveries and returns how many were
// delivered.
func (w *RedeliveryWorker) RunOnce(ctx context.Context) int {
	ids, err := w.target.FailedDeliveries(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("redelivery: list failed deliveries")
		return 0
	}

	failing := make(map[string]bool, len(ids))
	delivered := 0
	for _, id := range ids {
		failing[id] = true
		if ctx.Err() != nil {
			break
		}
		if w.attempt(ctx, id) {
			delivered++
		}
	}

	for id := range w.state {
		if !failing[id] {
			delete(w.state, id)
		}
	}
	return delivered
}

func (w *RedeliveryWorker) attempt(ctx context.Context, id string) bool {
	st, ok := w.state[id]
	if !ok {
		st = &attemptState{}
		w.state[id] = st
	}
	now := w.clock.Now()
	if st.exhausted || now.Before(st.nextAt) {
		return false
	}

	err := w.target.Redeliver(ctx, id)
	if err == nil {
		delete(w.state, id)
		w.logger.Info().Str("booking_id", id).Int("attempt", st.attempts+1).Msg("redelivery succeeded")
		return true
	}

	st.attempts++
	if errors.Is(err, domain.ErrIdentityUnverifiable) || errors.Is(err, domain.ErrBookingNotFound) ||
		w.retryPolicy.Exhausted(st.attempts) {
		st.exhausted = true
		w.logger.Error().Err(err).Str("booking_id", id).Int("attempts", st.attempts).Msg("redelivery given up")
		return false
	}

	st.nextAt = w.retryPolicy.NextAttempt(now, st.attempts, w.roll())
	w.logger.Warn().Err(err).Str("booking_id", id).Dur("retry_in", st.nextAt.Sub(now)).Msg("redelivery failed")
	return false
}
