package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CountersStore struct {
	pool *pgxpool.Pool
	Now  func() time.Time
}

func NewCountersStore(pool *pgxpool.Pool) *CountersStore {
	return &CountersStore{pool: pool}
}

func (s *CountersStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *CountersStore) Get(ctx context.Context, kind domain.ActionKind, identifier string) (domain.Counter, bool, error) {
	const q = `
		SELECT attempts, window_start
		FROM rate_limit_counters
		WHERE kind = $1 AND identifier = $2
	`

	c := domain.Counter{Kind: kind, Identifier: identifier}
	err := s.pool.QueryRow(ctx, q, string(kind), identifier).Scan(&c.Attempts, &c.WindowStart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Counter{}, false, nil
		}
		return domain.Counter{}, false, fmt.Errorf("get counter: %w", err)
	}
	return c, true, nil
}

// Increment locks the row so concurrent increments for one key serialize.
func (s *CountersStore) Increment(ctx context.Context, kind domain.ActionKind, identifier string, window time.Duration) (domain.Counter, error) {
	now := s.now()
	c := domain.Counter{Kind: kind, Identifier: identifier}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const sel = `
			SELECT attempts, window_start
			FROM rate_limit_counters
			WHERE kind = $1 AND identifier = $2
			FOR UPDATE
		`
		err := tx.QueryRow(ctx, sel, string(kind), identifier).Scan(&c.Attempts, &c.WindowStart)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			c.Attempts, c.WindowStart = 1, now
			const ins = `
				INSERT INTO rate_limit_counters (kind, identifier, attempts, window_start)
				VALUES ($1, $2, 1, $3)
				ON CONFLICT (kind, identifier)
				DO UPDATE SET attempts = rate_limit_counters.attempts + 1
				RETURNING attempts, window_start
			`
			return tx.QueryRow(ctx, ins, string(kind), identifier, now).Scan(&c.Attempts, &c.WindowStart)
		case err != nil:
			return err
		}

		if c.Stale(now, window) {
			c.Attempts, c.WindowStart = 1, now
		} else {
			c.Attempts++
		}
		const upd = `
			UPDATE rate_limit_counters
			SET attempts = $3, window_start = $4
			WHERE kind = $1 AND identifier = $2
		`
		_, err = tx.Exec(ctx, upd, string(kind), identifier, c.Attempts, c.WindowStart)
		return err
	})
	if err != nil {
		return domain.Counter{}, fmt.Errorf("increment counter: %w", err)
	}
	return c, nil
}

func (s *CountersStore) Reset(ctx context.Context, kind domain.ActionKind, identifier string) error {
	const q = `DELETE FROM rate_limit_counters WHERE kind = $1 AND identifier = $2`
	if _, err := s.pool.Exec(ctx, q, string(kind), identifier); err != nil {
		return fmt.Errorf("reset counter: %w", err)
	}
	return nil
}

func (s *CountersStore) SweepExpired(ctx context.Context, kind domain.ActionKind, maxAge time.Duration) (int64, error) {
	const q = `DELETE FROM rate_limit_counters WHERE kind = $1 AND window_start < $2`
	tag, err := s.pool.Exec(ctx, q, string(kind), s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("sweep counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
