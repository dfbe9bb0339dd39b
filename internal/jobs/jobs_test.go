package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/metrics"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/store/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubSweeper struct {
	sweepFunc func(context.Context) (int64, error)
}

func (s *stubSweeper) Sweep(ctx context.Context) (int64, error) {
	return s.sweepFunc(ctx)
}

func TestSweepCountersJobRemovesStaleCounters(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := ratelimit.NewMemoryStore()
	store.Now = clock
	limiter := ratelimit.NewLimiter(store, nil)
	limiter.Now = clock

	ctx := context.Background()
	if err := limiter.Increment(ctx, domain.ActionLogin, "old", ratelimit.LoginPolicy); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	now = now.Add(3 * time.Hour)
	if err := limiter.Increment(ctx, domain.ActionComment, "fresh", ratelimit.CommentPolicy); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	sweepsBefore := testutil.ToFloat64(metrics.RateLimitSweeps)
	sweptBefore := testutil.ToFloat64(metrics.RateLimitSwept)

	job := &SweepCountersJob{Limiter: limiter}
	job.Run()

	if store.Len() != 1 {
		t.Fatalf("expected 1 counter left, got %d", store.Len())
	}
	if got := testutil.ToFloat64(metrics.RateLimitSweeps) - sweepsBefore; got != 1 {
		t.Fatalf("sweeps metric delta = %v", got)
	}
	if got := testutil.ToFloat64(metrics.RateLimitSwept) - sweptBefore; got != 1 {
		t.Fatalf("swept metric delta = %v", got)
	}
}

func TestSweepCountersJobSurvivesErrors(t *testing.T) {
	job := &SweepCountersJob{Limiter: &stubSweeper{sweepFunc: func(context.Context) (int64, error) {
		return 0, errors.New("redis down")
	}}}
	job.Run()
}

func TestPurgeSessionsJob(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	sessions := memory.NewSessionsStore()
	sessions.Now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := sessions.CreateSession(ctx, domain.Session{ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	live, err := sessions.CreateSession(ctx, domain.Session{ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	job := &PurgeSessionsJob{Sessions: sessions, Now: func() time.Time { return now.Add(2 * time.Minute) }}
	job.Run()

	n, _ := sessions.DeleteExpiredSessions(ctx, now.Add(2*time.Minute))
	if n != 0 {
		t.Fatalf("expected job to have purged expired sessions, %d left", n)
	}
	if _, err := sessions.GetSession(ctx, live.ID); err != nil {
		t.Fatalf("live session removed: %v", err)
	}
}

type panickyJob struct{}

func (panickyJob) Name() string { return "panicky" }
func (panickyJob) Run()         { panic("boom") }

func TestRecoverWrapper(t *testing.T) {
	wrapped := recoverWrapper(logger(nil))(panickyJob{})
	wrapped.Run()
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Register("not a schedule", panickyJob{}); err == nil {
		t.Fatalf("expected invalid schedule to be rejected")
	}
	if err := s.Register(DefaultSchedule, panickyJob{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
