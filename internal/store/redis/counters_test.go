package redis

import (
	"context"
	"testing"
	"time"

	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/ratelimit"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*CountersStore, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewCountersStore(client)
	s.Now = func() time.Time { return now }
	return s, mr, &now
}

func TestCountersStore_IncrementAndGet(t *testing.T) {
	s, _, now := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, domain.ActionLogin, "alice_1.2.3.4"); err != nil || ok {
		t.Fatalf("expected no counter, ok=%v err=%v", ok, err)
	}

	for want := 1; want <= 3; want++ {
		c, err := s.Increment(ctx, domain.ActionLogin, "alice_1.2.3.4", 15*time.Minute)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if c.Attempts != want {
			t.Fatalf("attempts=%d, want %d", c.Attempts, want)
		}
		if !c.WindowStart.Equal(*now) {
			t.Fatalf("window start=%s, want %s", c.WindowStart, *now)
		}
	}

	c, ok, err := s.Get(ctx, domain.ActionLogin, "alice_1.2.3.4")
	if err != nil || !ok || c.Attempts != 3 {
		t.Fatalf("Get: %+v ok=%v err=%v", c, ok, err)
	}
}

func TestCountersStore_StaleWindowRestarts(t *testing.T) {
	s, _, now := newTestStore(t)
	ctx := context.Background()

	_, _ = s.Increment(ctx, domain.ActionComment, "10.0.0.1", 10*time.Minute)
	_, _ = s.Increment(ctx, domain.ActionComment, "10.0.0.1", 10*time.Minute)

	*now = now.Add(10*time.Minute + time.Second)
	c, err := s.Increment(ctx, domain.ActionComment, "10.0.0.1", 10*time.Minute)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if c.Attempts != 1 || !c.WindowStart.Equal(*now) {
		t.Fatalf("expected restarted window, got %+v", c)
	}
}

func TestCountersStore_ResetAndTTL(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	_, _ = s.Increment(ctx, domain.ActionLogin, "bob_::1", 15*time.Minute)
	key := counterKey(domain.ActionLogin, "bob_::1")
	if ttl := mr.TTL(key); ttl != 15*time.Minute+time.Hour {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	if err := s.Reset(ctx, domain.ActionLogin, "bob_::1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected key deleted")
	}

	_, _ = s.Increment(ctx, domain.ActionLogin, "bob_::1", 15*time.Minute)
	mr.FastForward(15*time.Minute + time.Hour + time.Second)
	if _, ok, _ := s.Get(ctx, domain.ActionLogin, "bob_::1"); ok {
		t.Fatalf("expected counter expired by ttl")
	}
}

func TestCountersStore_WithLimiter(t *testing.T) {
	s, _, now := newTestStore(t)
	l := ratelimit.NewLimiter(s, nil)
	l.Now = func() time.Time { return *now }
	ctx := context.Background()

	for i := 0; i < ratelimit.CommentPolicy.MaxAttempts; i++ {
		if err := l.Increment(ctx, domain.ActionComment, "10.0.0.9", ratelimit.CommentPolicy); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	if ok, _ := l.Check(ctx, domain.ActionComment, "10.0.0.9", ratelimit.CommentPolicy); ok {
		t.Fatalf("expected denied")
	}
	if rem, _ := l.Remaining(ctx, domain.ActionComment, "10.0.0.9", ratelimit.CommentPolicy); rem != 0 {
		t.Fatalf("remaining=%d", rem)
	}
}
