// Package throttle limits repeated failed logins per key.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
)

// LoginThrottle counts failed logins inside a window.
//
// Check does not record anything, call RecordFailure after a failed attempt
// and Reset after a successful one.
type LoginThrottle interface {
	// Check returns false once key reached the failure limit
	Check(ctx context.Context, key string) (allowed bool, err error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

func validate(max int, window time.Duration) error {
	if max <= 0 {
		return errors.Errorf("max failures must be positive, got %d", max)
	}
	if window <= 0 {
		return errors.Errorf("window must be positive, got %s", window)
	}
	return nil
}

// Memory is an in-process sliding window throttle
type Memory struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

// MemoryOption configures Memory
type MemoryOption func(*Memory)

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates a throttle allowing max failures per window.
// Expired entries are purged until ctx is done.
func NewMemory(ctx context.Context, max int, window time.Duration, opts ...MemoryOption) (*Memory, error) {
	if err := validate(max, window); err != nil {
		return nil, err
	}

	m := &Memory{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.runCleanup(ctx)
	return m, nil
}

func (m *Memory) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		for key := range m.attempts {
			m.pruneLocked(key)
		}
		m.mu.Unlock()
	}
}

// pruneLocked drops expired hits and returns the live count
func (m *Memory) pruneLocked(key string) int {
	cutoff := m.now().Add(-m.window)
	hits := m.attempts[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		delete(m.attempts, key)
	} else {
		m.attempts[key] = kept
	}
	return len(kept)
}

// Check implements LoginThrottle
func (m *Memory) Check(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pruneLocked(key) < m.max, nil
}

// RecordFailure implements LoginThrottle
func (m *Memory) RecordFailure(_ context.Context, key string) error {
	m.mu.Lock()
	m.attempts[key] = append(m.attempts[key], m.now())
	m.mu.Unlock()
	return nil
}

// Reset implements LoginThrottle
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.attempts, key)
	m.mu.Unlock()
	return nil
}
