package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store counts requests per key within a fixed window. Implementations
// reset the count when a new window opens and report how long the current
// window still has to run.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// Limiter enforces fixed-window ceilings over a Store.
type Limiter struct {
	store Store
}

// NewLimiter wraps a store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Allow consumes one slot for key. When the ceiling is exceeded it returns
// false plus how long the caller should wait. Store failures fail open: a
// broken counter backend must not take the API down.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	count, remaining, err := l.store.Incr(ctx, key, window)
	if err != nil {
		return true, 0
	}
	if count > int64(limit) {
		return false, remaining
	}
	return true, 0
}

type memoryEntry struct {
	count     int64
	windowEnd time.Time
}

// MemoryStore is the in-process fallback used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an in-memory counter store. A background goroutine
// evicts stale windows to prevent memory growth.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{entries: make(map[string]*memoryEntry)}
	go s.cleanup()
	return s
}

// Incr implements Store.
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &memoryEntry{windowEnd: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.windowEnd.Sub(now), nil
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for key, e := range s.entries {
			if now.After(e.windowEnd) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}
