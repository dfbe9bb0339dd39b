package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Blogwebserver/internal/domain"
)

type CountersStore struct {
	db  *sql.DB
	Now func() time.Time
}

func NewCountersStore(db *sql.DB) *CountersStore {
	return &CountersStore{db: db}
}

func (s *CountersStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *CountersStore) Get(ctx context.Context, kind domain.ActionKind, identifier string) (domain.Counter, bool, error) {
	const q = `SELECT attempts, window_start FROM rate_limit_counters WHERE kind = ? AND identifier = ?`

	var start int64
	c := domain.Counter{Kind: kind, Identifier: identifier}
	err := s.db.QueryRowContext(ctx, q, string(kind), identifier).Scan(&c.Attempts, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Counter{}, false, nil
	}
	if err != nil {
		return domain.Counter{}, false, fmt.Errorf("get counter: %w", err)
	}
	c.WindowStart = fromMillis(start)
	return c, true, nil
}

func (s *CountersStore) Increment(ctx context.Context, kind domain.ActionKind, identifier string, window time.Duration) (domain.Counter, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Counter{}, fmt.Errorf("begin increment: %w", err)
	}
	defer tx.Rollback()

	var (
		start int64
		c     = domain.Counter{Kind: kind, Identifier: identifier}
	)
	const sel = `SELECT attempts, window_start FROM rate_limit_counters WHERE kind = ? AND identifier = ?`
	err = tx.QueryRowContext(ctx, sel, string(kind), identifier).Scan(&c.Attempts, &start)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.Attempts, c.WindowStart = 0, now
	case err != nil:
		return domain.Counter{}, fmt.Errorf("read counter: %w", err)
	default:
		c.WindowStart = fromMillis(start)
	}

	if c.Stale(now, window) {
		c.Attempts, c.WindowStart = 0, now
	}
	c.Attempts++

	const upsert = `
		INSERT INTO rate_limit_counters (kind, identifier, attempts, window_start)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, identifier) DO UPDATE SET
			attempts = excluded.attempts,
			window_start = excluded.window_start
	`
	if _, err := tx.ExecContext(ctx, upsert, string(kind), identifier, c.Attempts, toMillis(c.WindowStart)); err != nil {
		return domain.Counter{}, fmt.Errorf("write counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Counter{}, fmt.Errorf("commit counter: %w", err)
	}
	c.WindowStart = fromMillis(toMillis(c.WindowStart))
	return c, nil
}

func (s *CountersStore) Reset(ctx context.Context, kind domain.ActionKind, identifier string) error {
	const q = `DELETE FROM rate_limit_counters WHERE kind = ? AND identifier = ?`
	if _, err := s.db.ExecContext(ctx, q, string(kind), identifier); err != nil {
		return fmt.Errorf("reset counter: %w", err)
	}
	return nil
}

func (s *CountersStore) SweepExpired(ctx context.Context, kind domain.ActionKind, maxAge time.Duration) (int64, error) {
	const q = `DELETE FROM rate_limit_counters WHERE kind = ? AND window_start < ?`
	res, err := s.db.ExecContext(ctx, q, string(kind), toMillis(s.now().Add(-maxAge)))
	if err != nil {
		return 0, fmt.Errorf("sweep counters: %w", err)
	}
	return res.RowsAffected()
}
