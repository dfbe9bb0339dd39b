package jobs

import (
	"context"
	"log/slog"
	"time"

	"Blogwebserver/internal/metrics"
)

const runTimeout = time.Minute

type CounterSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SweepCountersJob drops rate-limit counters whose window closed long ago.
type SweepCountersJob struct {
	Limiter CounterSweeper
	Logger  *slog.Logger
}

func (j *SweepCountersJob) Name() string { return "sweep_rate_limit_counters" }

func (j *SweepCountersJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := j.Limiter.Sweep(ctx)
	metrics.RateLimitSweeps.Inc()
	if err != nil {
		logger(j.Logger).Error("sweep rate limit counters failed", "err", err)
		return
	}
	metrics.RateLimitSwept.Add(float64(n))
	if n > 0 {
		logger(j.Logger).Info("swept rate limit counters", "count", n)
	}
}

type PurgeSessionsJob struct {
	Sessions SessionPurger
	Logger   *slog.Logger
	Now      func() time.Time
}

func (j *PurgeSessionsJob) Name() string { return "purge_expired_sessions" }

func (j *PurgeSessionsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}
	n, err := j.Sessions.DeleteExpiredSessions(ctx, now)
	if err != nil {
		logger(j.Logger).Error("purge expired sessions failed", "err", err)
		return
	}
	if n > 0 {
		logger(j.Logger).Info("purged expired sessions", "count", n)
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
