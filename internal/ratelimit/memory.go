// internal/ratelimit/memory.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	mu   sync.Mutex
	hits []time.Time
	span time.Duration
	dead bool
}

// Memory is a process-local limiter. Each key has its own lock; the map lock
// only guards lookup and insertion.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock is NewMemory with an injected clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		windows: make(map[string]*window),
		now:     now,
	}
}

func (m *Memory) Check(ctx context.Context, key string, limit int, span time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for {
		w := m.lookup(key)
		w.mu.Lock()
		if w.dead {
			// swept between lookup and lock
			w.mu.Unlock()
			continue
		}

		now := m.now()
		w.span = span
		w.hits = prune(w.hits, now, span)
		if len(w.hits) >= limit {
			w.mu.Unlock()
			return &ExceededError{Key: key, Limit: limit, RetryAfter: span}
		}
		w.hits = append(w.hits, now)
		w.mu.Unlock()
		return nil
	}
}

func (m *Memory) lookup(key string) *window {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[key]
	if !ok {
		w = &window{}
		m.windows[key] = w
	}
	return w
}

func prune(hits []time.Time, now time.Time, span time.Duration) []time.Time {
	keep := 0
	for keep < len(hits) && now.Sub(hits[keep]) >= span {
		keep++
	}
	if keep == 0 {
		return hits
	}
	return append(hits[:0], hits[keep:]...)
}

// Sweep drops every key whose recorded hits have all left their window.
// It returns the number of keys removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, w := range m.windows {
		w.mu.Lock()
		w.hits = prune(w.hits, now, w.span)
		if len(w.hits) == 0 {
			w.dead = true
			delete(m.windows, key)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
