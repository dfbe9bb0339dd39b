// Package ratelimit implements fixed-window attempt counters keyed by
// (action kind, identifier).
//
// The limiter is best-effort: Check and Increment are separate calls, so two
// concurrent requests for the same identifier can both observe attempts=N
// before either increments. It caps abuse, it is not a strict quota.
package ratelimit

import (
	"context"
	"time"

	"Blogwebserver/internal/domain"
)

// Store persists counters. Windows are reset lazily: Increment restarts a
// stale window, readers treat a stale counter as fresh.
type Store interface {
	Get(ctx context.Context, kind domain.ActionKind, identifier string) (domain.Counter, bool, error)
	Increment(ctx context.Context, kind domain.ActionKind, identifier string, window time.Duration) (domain.Counter, error)
	Reset(ctx context.Context, kind domain.ActionKind, identifier string) error
	SweepExpired(ctx context.Context, kind domain.ActionKind, maxAge time.Duration) (int64, error)
}
