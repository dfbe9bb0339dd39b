package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Blogwebserver/internal/domain"
)

type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

var (
	LoginPolicy   = Policy{MaxAttempts: 5, Window: 900 * time.Second}
	CommentPolicy = Policy{MaxAttempts: 3, Window: 600 * time.Second}
)

// SweepGrace is how long after a window closes its counter is kept around.
const SweepGrace = time.Hour

func (p Policy) validate() error {
	if p.MaxAttempts <= 0 {
		return errors.New("ratelimit: max attempts must be > 0")
	}
	if p.Window <= 0 {
		return errors.New("ratelimit: window must be > 0")
	}
	return nil
}

type Limiter struct {
	Store    Store
	Policies map[domain.ActionKind]Policy
	Now      func() time.Time
}

func NewLimiter(store Store, policies map[domain.ActionKind]Policy) *Limiter {
	if policies == nil {
		policies = map[domain.ActionKind]Policy{
			domain.ActionLogin:   LoginPolicy,
			domain.ActionComment: CommentPolicy,
		}
	}
	return &Limiter{Store: store, Policies: policies}
}

func (l *Limiter) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

// Policy returns the configured policy for kind, falling back to the defaults.
func (l *Limiter) Policy(kind domain.ActionKind) Policy {
	if p, ok := l.Policies[kind]; ok {
		return p
	}
	if kind == domain.ActionLogin {
		return LoginPolicy
	}
	return CommentPolicy
}

// Check reports whether another attempt is allowed. An absent or stale
// counter always allows.
func (l *Limiter) Check(ctx context.Context, kind domain.ActionKind, identifier string, p Policy) (bool, error) {
	c, ok, err := l.read(ctx, kind, identifier, p)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return c.Attempts < p.MaxAttempts, nil
}

// Increment records one attempt. A stale window is restarted at now.
func (l *Limiter) Increment(ctx context.Context, kind domain.ActionKind, identifier string, p Policy) error {
	if err := p.validate(); err != nil {
		return err
	}
	if !kind.Valid() {
		return fmt.Errorf("ratelimit: unknown action kind %q", kind)
	}
	if _, err := l.Store.Increment(ctx, kind, identifier, p.Window); err != nil {
		return fmt.Errorf("ratelimit increment %s: %w", kind, err)
	}
	return nil
}

// Remaining is max - attempts clamped to [0, max]; a pure read.
func (l *Limiter) Remaining(ctx context.Context, kind domain.ActionKind, identifier string, p Policy) (int, error) {
	c, ok, err := l.read(ctx, kind, identifier, p)
	if err != nil {
		return 0, err
	}
	if !ok {
		return p.MaxAttempts, nil
	}
	return clamp(p.MaxAttempts-c.Attempts, 0, p.MaxAttempts), nil
}

// RetryAfter is the time left until the current window closes, or zero when
// the identifier is not locked out.
func (l *Limiter) RetryAfter(ctx context.Context, kind domain.ActionKind, identifier string, p Policy) (time.Duration, error) {
	c, ok, err := l.read(ctx, kind, identifier, p)
	if err != nil || !ok || c.Attempts < p.MaxAttempts {
		return 0, err
	}
	d := c.WindowStart.Add(p.Window).Sub(l.now())
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (l *Limiter) Reset(ctx context.Context, kind domain.ActionKind, identifier string) error {
	if err := l.Store.Reset(ctx, kind, identifier); err != nil {
		return fmt.Errorf("ratelimit reset %s: %w", kind, err)
	}
	return nil
}

// Sweep drops counters whose window closed more than SweepGrace ago. Each
// kind is cut off against its own policy window.
func (l *Limiter) Sweep(ctx context.Context) (int64, error) {
	var total int64
	for _, kind := range []domain.ActionKind{domain.ActionLogin, domain.ActionComment} {
		n, err := l.Store.SweepExpired(ctx, kind, l.Policy(kind).Window+SweepGrace)
		total += n
		if err != nil {
			return total, fmt.Errorf("ratelimit sweep %s: %w", kind, err)
		}
	}
	return total, nil
}

// read returns the counter if one exists and its window is still open.
func (l *Limiter) read(ctx context.Context, kind domain.ActionKind, identifier string, p Policy) (domain.Counter, bool, error) {
	if err := p.validate(); err != nil {
		return domain.Counter{}, false, err
	}
	c, ok, err := l.Store.Get(ctx, kind, identifier)
	if err != nil {
		return domain.Counter{}, false, fmt.Errorf("ratelimit read %s: %w", kind, err)
	}
	if !ok || c.Stale(l.now(), p.Window) {
		return domain.Counter{}, false, nil
	}
	return c, true, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
