package lock

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExclusiveSerializes(t *testing.T) {
	var m Mutex
	var inside, maxInside int32
	var wg sync.WaitGroup

	const workers = 50
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _ = RunExclusive(&m, func() (struct{}, error) {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestMutexIsFIFO(t *testing.T) {
	var m Mutex
	m.Lock()

	const waiters = 8
	order := make(chan int, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)

	for i := 0; i < waiters; i++ {
		go func(id int) {
			defer wg.Done()
			_ = m.Do(func() error {
				order <- id
				return nil
			})
		}(i)
		// Queue waiters one at a time so arrival order is known.
		want := i + 1
		require.Eventually(t, func() bool { return m.Waiting() == want }, time.Second, time.Millisecond)
	}

	m.Unlock()
	wg.Wait()
	close(order)

	got := make([]int, 0, waiters)
	for id := range order {
		got = append(got, id)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, got)
}

func TestDoReleasesOnError(t *testing.T) {
	var m Mutex
	boom := errors.New("boom")

	err := m.Do(func() error { return boom })
	assert.ErrorIs(t, err, boom)

	done := make(chan struct{})
	go func() {
		m.Lock()
		m.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutex still held after failed critical section")
	}
}

func TestDoReleasesOnPanic(t *testing.T) {
	var m Mutex

	func() {
		defer func() { _ = recover() }()
		_ = m.Do(func() error { panic("critical section blew up") })
	}()

	v, err := RunExclusive(&m, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestUnlockOfUnlockedPanics(t *testing.T) {
	var m Mutex
	assert.Panics(t, func() { m.Unlock() })
}
