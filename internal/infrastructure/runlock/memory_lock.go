package runlock

import (
	"context"
	"sync"
	"time"
)

// MemoryRunLock is a process-local run lock with the same TTL semantics as
// the Redis implementation.
type MemoryRunLock struct {
	mu     sync.Mutex
	held   bool
	ttl    time.Duration
	heldAt time.Time
}

// NewMemoryRunLock creates an in-memory run lock
func NewMemoryRunLock(ttl time.Duration) *MemoryRunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryRunLock{ttl: ttl}
}

// Acquire takes the lock, treating an expired holder as released
func (l *MemoryRunLock) Acquire(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held && time.Since(l.heldAt) < l.ttl {
		return false, nil
	}
	l.held = true
	l.heldAt = time.Now()
	return true, nil
}

// Release gives the lock back
func (l *MemoryRunLock) Release(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
