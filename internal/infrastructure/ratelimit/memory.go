package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory keeps hit timestamps per key in process memory.
type Memory struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewMemory builds an in-process limiter. A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{hits: make(map[string][]time.Time), now: now}
}

func (m *Memory) Attempt(_ context.Context, key string, max int, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)
	kept := m.hits[key][:0]
	for _, h := range m.hits[key] {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}

	if len(kept) >= max {
		m.hits[key] = kept
		return Decision{RetryAfter: roundUp(kept[0].Add(window).Sub(now))}, nil
	}
	m.hits[key] = append(kept, now)
	return Decision{Allowed: true}, nil
}

// Sweep drops buckets whose hits have all aged out of window.
func (m *Memory) Sweep(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-window)
	for key, hits := range m.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(m.hits, key)
		}
	}
}
