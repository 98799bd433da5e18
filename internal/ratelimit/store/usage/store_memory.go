package usage

import (
	"context"
	"sync"
	"time"

	"paythru/internal/ratelimit/models"
)

// InMemoryStore implements ports.UsageStore with per-process fixed windows.
// Counters are lost on restart and are not shared between replicas; use
// RedisStore for that.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

type MemoryOption func(*InMemoryStore)

// WithNow overrides the clock.
func WithNow(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment opens a new window on the first call or once the previous one
// has ended; otherwise it counts against the current window.
func (s *InMemoryStore) Increment(_ context.Context, key string, limit int, window time.Duration) (*models.UsageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil || !w.resetAt.After(now) {
		w = &fixedWindow{count: 1, resetAt: now.Add(window)}
		s.windows[key] = w
		return &models.UsageResult{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= limit {
		return &models.UsageResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    w.resetAt,
			RetryAfter: models.RetryAfterSeconds(now, w.resetAt),
		}, nil
	}

	w.count++
	return &models.UsageResult{Allowed: true, Limit: limit, Remaining: limit - w.count, ResetAt: w.resetAt}, nil
}

func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Sweep drops windows that have ended. Intended for a periodic janitor.
func (s *InMemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, w := range s.windows {
		if !w.resetAt.After(now) {
			delete(s.windows, k)
			removed++
		}
	}
	return removed
}
