package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionsStore struct {
	pool *pgxpool.Pool
}

func NewSessionsStore(pool *pgxpool.Pool) *SessionsStore {
	return &SessionsStore{pool: pool}
}

func (s *SessionsStore) CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error) {
	const q = `
		INSERT INTO sessions (admin_id, csrf_token, login_ip, created_at, last_seen_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var idUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q,
		nullIfEmpty(sess.AdminID),
		sess.CSRFToken,
		nullIfEmpty(sess.LoginIP),
		sess.CreatedAt,
		sess.LastSeenAt,
		sess.ExpiresAt,
	).Scan(&idUUID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	sess.ID = uuidOrEmpty(idUUID)
	return sess, nil
}

func (s *SessionsStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if !validUUID(id) {
		return domain.Session{}, domain.ErrNotFound
	}
	const q = `
		SELECT id, admin_id, csrf_token, login_ip, created_at, last_seen_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > now()
	`

	var (
		sess      domain.Session
		idUUID    pgtype.UUID
		adminUUID pgtype.UUID
		loginIP   pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&idUUID,
		&adminUUID,
		&sess.CSRFToken,
		&loginIP,
		&sess.CreatedAt,
		&sess.LastSeenAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	sess.ID = uuidOrEmpty(idUUID)
	sess.AdminID = uuidOrEmpty(adminUUID)
	sess.LoginIP = textOrEmpty(loginIP)
	return sess, nil
}

// RegenerateSessionID moves the row to a new primary key in place.
func (s *SessionsStore) RegenerateSessionID(ctx context.Context, id string) (string, error) {
	if !validUUID(id) {
		return "", domain.ErrNotFound
	}
	const q = `UPDATE sessions SET id = gen_random_uuid() WHERE id = $1 RETURNING id`

	var idUUID pgtype.UUID
	if err := s.pool.QueryRow(ctx, q, id).Scan(&idUUID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("regenerate session: %w", err)
	}
	return uuidOrEmpty(idUUID), nil
}

func (s *SessionsStore) UpdateSession(ctx context.Context, sess domain.Session) error {
	if !validUUID(sess.ID) {
		return domain.ErrNotFound
	}
	const q = `
		UPDATE sessions
		SET admin_id = $2, csrf_token = $3, login_ip = $4, last_seen_at = $5, expires_at = $6
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, q,
		sess.ID,
		nullIfEmpty(sess.AdminID),
		sess.CSRFToken,
		nullIfEmpty(sess.LoginIP),
		sess.LastSeenAt,
		sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionsStore) DestroySession(ctx context.Context, id string) error {
	if !validUUID(id) {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *SessionsStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
