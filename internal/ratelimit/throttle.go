package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleIdleTTL is how long an idle IP keeps its bucket.
const ThrottleIdleTTL = 10 * time.Minute

// IPThrottle is a coarse per-IP token bucket in front of every POST route,
// API and admin forms alike. It protects the gates themselves; the per-action
// attempt limits are Limiter's job.
type IPThrottle struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*throttleEntry
	lastSweep time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPThrottle(perSecond float64, burst int) *IPThrottle {
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = 10
	}
	return &IPThrottle{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		entries: make(map[string]*throttleEntry),
	}
}

func (t *IPThrottle) Allow(ip string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastSweep) > ThrottleIdleTTL {
		for k, e := range t.entries {
			if now.Sub(e.lastSeen) > ThrottleIdleTTL {
				delete(t.entries, k)
			}
		}
		t.lastSweep = now
	}

	e, ok := t.entries[ip]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (t *IPThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
