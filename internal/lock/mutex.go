// Package lock provides the FIFO mutex that serializes every
// read-modify-write against the booking store.
package lock

import "sync"

// Mutex is a mutual-exclusion lock that grants ownership to waiters in the
// order they called Lock. The zero value is unlocked.
//
// sync.Mutex makes no ordering promise, so ownership here is handed directly
// from the releasing goroutine to the oldest waiter.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// Lock blocks until the caller owns the mutex. There is no timeout.
func (m *Mutex) Lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	<-ch
}

// Unlock releases the mutex, handing it to the oldest waiter if any.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		panic("lock: unlock of unlocked mutex")
	}
	if len(m.waiters) == 0 {
		m.locked = false
		return
	}
	next := m.waiters[0]
	m.waiters[0] = nil
	m.waiters = m.waiters[1:]
	close(next)
}

// Waiting returns the number of goroutines queued for the mutex.
func (m *Mutex) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// Do runs fn while holding the mutex. The mutex is released even if fn
// panics.
func (m *Mutex) Do(fn func() error) error {
	m.Lock()
	defer m.Unlock()
	return fn()
}

// RunExclusive runs fn while holding m and returns its result.
func RunExclusive[T any](m *Mutex, fn func() (T, error)) (T, error) {
	m.Lock()
	defer m.Unlock()
	return fn()
}
