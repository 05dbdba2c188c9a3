package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAttemptRepository(t *testing.T) {
	repo := NewMemoryAttemptRepository()
	now := time.Date(2025, 12, 29, 7, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("LimitReached", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "client", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, "client", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("WindowResets", func(t *testing.T) {
		now = now.Add(time.Minute)
		allowed, err := repo.CheckRateLimit(ctx, "client", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Sweep", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		assert.Equal(t, 1, repo.Sweep())
		assert.Equal(t, 0, repo.Sweep())
	})
}

func TestMemoryAttemptRepositoryConcurrent(t *testing.T) {
	repo := NewMemoryAttemptRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := repo.CheckRateLimit(ctx, "shared", 10, time.Hour)
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowedCount)
}

func TestMemoryAttemptRepositorySweeper(t *testing.T) {
	repo := NewMemoryAttemptRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := repo.CheckRateLimit(ctx, "client", 1, time.Millisecond)
	require.NoError(t, err)

	go repo.StartSweeper(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.entries) == 0
	}, time.Second, 5*time.Millisecond)
}
