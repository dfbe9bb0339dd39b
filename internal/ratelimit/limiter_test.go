package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"Blogwebserver/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.Now = clock.Now
	l := NewLimiter(store, nil)
	l.Now = clock.Now
	return l, store, clock
}

func TestLimiterBlocksAfterMaxAttempts(t *testing.T) {
	l, _, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < LoginPolicy.MaxAttempts; i++ {
		ok, err := l.Check(ctx, domain.ActionLogin, "alice_1.2.3.4", LoginPolicy)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !ok {
			t.Fatalf("attempt %d: expected allowed", i+1)
		}
		if err := l.Increment(ctx, domain.ActionLogin, "alice_1.2.3.4", LoginPolicy); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	ok, err := l.Check(ctx, domain.ActionLogin, "alice_1.2.3.4", LoginPolicy)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if ok {
		t.Fatalf("expected denied after %d attempts", LoginPolicy.MaxAttempts)
	}

	ok, _ = l.Check(ctx, domain.ActionLogin, "bob_1.2.3.4", LoginPolicy)
	if !ok {
		t.Fatalf("other identifier must not share the counter")
	}
	ok, _ = l.Check(ctx, domain.ActionComment, "alice_1.2.3.4", CommentPolicy)
	if !ok {
		t.Fatalf("other action kind must not share the counter")
	}
}

func TestLimiterReadTriggeredReset(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < CommentPolicy.MaxAttempts; i++ {
		_ = l.Increment(ctx, domain.ActionComment, "10.0.0.1", CommentPolicy)
	}
	if ok, _ := l.Check(ctx, domain.ActionComment, "10.0.0.1", CommentPolicy); ok {
		t.Fatalf("expected denied inside window")
	}

	clock.Advance(CommentPolicy.Window)
	if ok, _ := l.Check(ctx, domain.ActionComment, "10.0.0.1", CommentPolicy); ok {
		t.Fatalf("window boundary is inclusive: expected still denied at exactly window")
	}

	clock.Advance(time.Second)
	ok, err := l.Check(ctx, domain.ActionComment, "10.0.0.1", CommentPolicy)
	if err != nil || !ok {
		t.Fatalf("expected allowed after window, ok=%v err=%v", ok, err)
	}
	rem, _ := l.Remaining(ctx, domain.ActionComment, "10.0.0.1", CommentPolicy)
	if rem != CommentPolicy.MaxAttempts {
		t.Fatalf("remaining after window: got %d", rem)
	}

	// Reads never rewrite the stored counter.
	c, found, _ := store.Get(ctx, domain.ActionComment, "10.0.0.1")
	if !found || c.Attempts != CommentPolicy.MaxAttempts {
		t.Fatalf("expected stored counter untouched by reads, got %+v found=%v", c, found)
	}
}

func TestLimiterIncrementTriggeredReset(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = l.Increment(ctx, domain.ActionLogin, "id", LoginPolicy)
	}
	clock.Advance(LoginPolicy.Window + time.Second)

	if err := l.Increment(ctx, domain.ActionLogin, "id", LoginPolicy); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	c, _, _ := store.Get(ctx, domain.ActionLogin, "id")
	if c.Attempts != 1 {
		t.Fatalf("expected fresh window with 1 attempt, got %d", c.Attempts)
	}
	if !c.WindowStart.Equal(clock.Now()) {
		t.Fatalf("expected window to restart at now, got %s", c.WindowStart)
	}
}

func TestLimiterRemainingClamped(t *testing.T) {
	l, _, _ := newTestLimiter()
	ctx := context.Background()
	p := Policy{MaxAttempts: 2, Window: time.Minute}

	want := []int{2, 1, 0, 0, 0}
	for i, w := range want {
		got, err := l.Remaining(ctx, domain.ActionLogin, "x", p)
		if err != nil {
			t.Fatalf("Remaining: %v", err)
		}
		if got != w {
			t.Fatalf("after %d increments: remaining=%d, want %d", i, got, w)
		}
		_ = l.Increment(ctx, domain.ActionLogin, "x", p)
	}
}

func TestLimiterRetryAfter(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()
	p := Policy{MaxAttempts: 1, Window: 10 * time.Minute}

	d, _ := l.RetryAfter(ctx, domain.ActionComment, "ip", p)
	if d != 0 {
		t.Fatalf("expected no wait before any attempt, got %s", d)
	}

	_ = l.Increment(ctx, domain.ActionComment, "ip", p)
	clock.Advance(4 * time.Minute)
	d, _ = l.RetryAfter(ctx, domain.ActionComment, "ip", p)
	if d != 6*time.Minute {
		t.Fatalf("RetryAfter: got %s, want 6m", d)
	}
}

func TestLimiterResetForgivesAttempts(t *testing.T) {
	l, _, _ := newTestLimiter()
	ctx := context.Background()

	_ = l.Increment(ctx, domain.ActionLogin, "id", LoginPolicy)
	_ = l.Increment(ctx, domain.ActionLogin, "id", LoginPolicy)
	if err := l.Reset(ctx, domain.ActionLogin, "id"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	rem, _ := l.Remaining(ctx, domain.ActionLogin, "id", LoginPolicy)
	if rem != LoginPolicy.MaxAttempts {
		t.Fatalf("expected full attempts after reset, got %d", rem)
	}
}

func TestLimiterSweep(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	_ = l.Increment(ctx, domain.ActionLogin, "old", LoginPolicy)
	clock.Advance(LoginPolicy.Window + SweepGrace + time.Minute)
	_ = l.Increment(ctx, domain.ActionLogin, "new", LoginPolicy)

	n, err := l.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 || store.Len() != 1 {
		t.Fatalf("expected 1 swept and 1 kept, got swept=%d kept=%d", n, store.Len())
	}
	if _, ok, _ := store.Get(ctx, domain.ActionLogin, "new"); !ok {
		t.Fatalf("expected live counter to survive sweep")
	}
}

func TestLimiterSweepUsesEachKindsWindow(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	_ = l.Increment(ctx, domain.ActionComment, "10.0.0.9", CommentPolicy)
	_ = l.Increment(ctx, domain.ActionLogin, "bob_10.0.0.9", LoginPolicy)
	// Past the comment cutoff, still inside the login one.
	clock.Advance(CommentPolicy.Window + SweepGrace + time.Minute)

	n, err := l.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if _, ok, _ := store.Get(ctx, domain.ActionComment, "10.0.0.9"); ok {
		t.Fatalf("expected comment counter swept")
	}
	if _, ok, _ := store.Get(ctx, domain.ActionLogin, "bob_10.0.0.9"); !ok {
		t.Fatalf("expected login counter kept")
	}
}

func TestLimiterRejectsBadInput(t *testing.T) {
	l, _, _ := newTestLimiter()
	ctx := context.Background()

	if _, err := l.Check(ctx, domain.ActionLogin, "id", Policy{}); err == nil {
		t.Fatalf("expected error for empty policy")
	}
	if err := l.Increment(ctx, domain.ActionKind("upload"), "id", LoginPolicy); err == nil {
		t.Fatalf("expected error for unknown action kind")
	}
}

type failingStore struct{ MemoryStore }

var errStoreDown = errors.New("store down")

func (*failingStore) Get(context.Context, domain.ActionKind, string) (domain.Counter, bool, error) {
	return domain.Counter{}, false, errStoreDown
}

func TestLimiterPropagatesStoreErrors(t *testing.T) {
	l := NewLimiter(&failingStore{}, nil)
	ok, err := l.Check(context.Background(), domain.ActionLogin, "id", LoginPolicy)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if ok {
		t.Fatalf("store failure must not allow")
	}
}
