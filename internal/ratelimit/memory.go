package ratelimit

import (
	"context"
	"sync"
	"time"

	"Blogwebserver/internal/domain"
)

type counterKey struct {
	kind       domain.ActionKind
	identifier string
}

// MemoryStore keeps counters in a process-local map. The mutex only keeps the
// map safe under net/http's goroutine-per-request model.
type MemoryStore struct {
	Now func() time.Time

	mu       sync.Mutex
	counters map[counterKey]domain.Counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[counterKey]domain.Counter)}
}

func (s *MemoryStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *MemoryStore) Get(_ context.Context, kind domain.ActionKind, identifier string) (domain.Counter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[counterKey{kind, identifier}]
	return c, ok, nil
}

func (s *MemoryStore) Increment(_ context.Context, kind domain.ActionKind, identifier string, window time.Duration) (domain.Counter, error) {
	now := s.now()
	key := counterKey{kind, identifier}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || c.Stale(now, window) {
		c = domain.Counter{Kind: kind, Identifier: identifier, WindowStart: now}
	}
	c.Attempts++
	s.counters[key] = c
	return c, nil
}

func (s *MemoryStore) Reset(_ context.Context, kind domain.ActionKind, identifier string) error {
	s.mu.Lock()
	delete(s.counters, counterKey{kind, identifier})
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SweepExpired(_ context.Context, kind domain.ActionKind, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, c := range s.counters {
		if k.kind == kind && c.WindowStart.Before(cutoff) {
			delete(s.counters, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
