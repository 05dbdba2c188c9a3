package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ticketify/internal/clock"
	"ticketify/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	failed  []string
	listErr error
	results map[string][]error
	calls   map[string]int
}

func newFakeTarget(ids ...string) *fakeTarget {
	return &fakeTarget{failed: ids, results: map[string][]error{}, calls: map[string]int{}}
}

func (f *fakeTarget) FailedDeliveries(context.Context) ([]string, error) {
	return f.failed, f.listErr
}

func (f *fakeTarget) Redeliver(_ context.Context, id string) error {
	n := f.calls[id]
	f.calls[id]++
	results := f.results[id]
	if n < len(results) {
		return results[n]
	}
	return nil
}

func newTestWorker(target Redeliverer, clk clock.Clock) *RedeliveryWorker {
	logger := zerolog.New(io.Discard)
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Minute, MaxDelay: 10 * time.Minute, BackoffFactor: 2, Jitter: 0.2}
	w := NewRedeliveryWorker(target, policy, time.Second, clk, &logger)
	w.roll = func() float64 { return 0.5 }
	return w
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}.withDefaults()

	assert.Equal(t, time.Second, policy.Backoff(1))
	assert.Equal(t, 2*time.Second, policy.Backoff(2))
	assert.Equal(t, 5*time.Second, policy.Backoff(5))
	assert.Equal(t, time.Second, policy.Backoff(0))
	assert.Equal(t, 5*time.Second, policy.Backoff(200))
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := RetryPolicy{Jitter: 3}.withDefaults()

	assert.Equal(t, defaultMaxRetries, policy.MaxRetries)
	assert.Equal(t, defaultInitialDelay, policy.Backoff(1))
	assert.Equal(t, defaultMaxDelay, policy.MaxDelay)
	assert.Less(t, policy.Jitter, 1.0)
	assert.False(t, policy.Exhausted(defaultMaxRetries-1))
	assert.True(t, policy.Exhausted(defaultMaxRetries))
}

func TestRetryPolicyJitterSpreadsAttempts(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Minute, Jitter: 0.2}.withDefaults()
	now := time.Date(2025, 12, 29, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(time.Minute), policy.NextAttempt(now, 1, 0.5))
	assert.Equal(t, now.Add(48*time.Second), policy.NextAttempt(now, 1, 0))
	assert.Equal(t, now.Add(72*time.Second), policy.NextAttempt(now, 1, 1))

	seen := map[time.Time]bool{}
	for _, roll := range []float64{0.1, 0.3, 0.7, 0.9} {
		at := policy.NextAttempt(now, 1, roll)
		assert.True(t, !at.Before(now.Add(48*time.Second)) && !at.After(now.Add(72*time.Second)))
		seen[at] = true
	}
	assert.Len(t, seen, 4)

	flat := RetryPolicy{InitialDelay: time.Minute}.withDefaults()
	assert.Equal(t, now.Add(time.Minute), flat.NextAttempt(now, 1, 0.9))
}

func TestRedeliveryJitteredSchedule(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 12, 29, 8, 0, 0, 0, time.UTC))
	target := newFakeTarget("a", "b")
	target.results["a"] = []error{domain.ErrDeliveryFailed}
	target.results["b"] = []error{domain.ErrDeliveryFailed}
	w := newTestWorker(target, clk)
	rolls := []float64{0, 1}
	w.roll = func() float64 {
		r := rolls[0]
		rolls = rolls[1:]
		return r
	}

	w.RunOnce(context.Background())

	assert.Equal(t, clk.Now().Add(48*time.Second), w.state["a"].nextAt)
	assert.Equal(t, clk.Now().Add(72*time.Second), w.state["b"].nextAt)
}

func TestRedeliverySucceeds(t *testing.T) {
	target := newFakeTarget("a", "b")
	w := newTestWorker(target, clock.NewManual(time.Now()))

	assert.Equal(t, 2, w.RunOnce(context.Background()))
	assert.Empty(t, w.state)
}

func TestRedeliveryBacksOff(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 12, 29, 8, 0, 0, 0, time.UTC))
	target := newFakeTarget("a")
	target.results["a"] = []error{domain.ErrDeliveryFailed, domain.ErrDeliveryFailed}
	w := newTestWorker(target, clk)
	ctx := context.Background()

	assert.Zero(t, w.RunOnce(ctx))
	assert.Equal(t, 1, target.calls["a"])

	// still inside the first backoff window
	clk.Advance(30 * time.Second)
	assert.Zero(t, w.RunOnce(ctx))
	assert.Equal(t, 1, target.calls["a"])

	clk.Advance(31 * time.Second)
	assert.Zero(t, w.RunOnce(ctx))
	assert.Equal(t, 2, target.calls["a"])
	assert.Equal(t, clk.Now().Add(2*time.Minute), w.state["a"].nextAt)

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, w.RunOnce(ctx))
	assert.Equal(t, 3, target.calls["a"])
}

func TestRedeliveryGivesUp(t *testing.T) {
	clk := clock.NewManual(time.Now())
	target := newFakeTarget("a")
	target.results["a"] = []error{domain.ErrDeliveryFailed, domain.ErrDeliveryFailed, domain.ErrDeliveryFailed, nil}
	w := newTestWorker(target, clk)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		w.RunOnce(ctx)
		clk.Advance(time.Hour)
	}

	assert.Equal(t, 3, target.calls["a"])
	require.Contains(t, w.state, "a")
	assert.True(t, w.state["a"].exhausted)
}

func TestRedeliveryStopsOnUnverifiableIdentity(t *testing.T) {
	clk := clock.NewManual(time.Now())
	target := newFakeTarget("a")
	target.results["a"] = []error{domain.ErrIdentityUnverifiable}
	w := newTestWorker(target, clk)

	w.RunOnce(context.Background())
	clk.Advance(time.Hour)
	w.RunOnce(context.Background())

	assert.Equal(t, 1, target.calls["a"])
}

func TestRedeliveryForgetsResolvedBookings(t *testing.T) {
	clk := clock.NewManual(time.Now())
	target := newFakeTarget("a")
	target.results["a"] = []error{domain.ErrDeliveryFailed}
	w := newTestWorker(target, clk)

	w.RunOnce(context.Background())
	require.Contains(t, w.state, "a")

	target.failed = nil
	w.RunOnce(context.Background())
	assert.NotContains(t, w.state, "a")
}

func TestRedeliveryListError(t *testing.T) {
	target := newFakeTarget()
	target.listErr = errors.New("store down")
	w := newTestWorker(target, clock.NewManual(time.Now()))

	assert.Zero(t, w.RunOnce(context.Background()))
}

func TestRedeliveryStartStops(t *testing.T) {
	w := newTestWorker(newFakeTarget(), clock.NewManual(time.Now()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
