package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminsStore struct {
	pool *pgxpool.Pool
}

func NewAdminsStore(pool *pgxpool.Pool) *AdminsStore {
	return &AdminsStore{pool: pool}
}

func scanAdmin(row pgx.Row, withHash bool) (domain.AdminWithPassword, error) {
	var (
		a           domain.AdminWithPassword
		idUUID      pgtype.UUID
		emailText   pgtype.Text
		lastLoginTS pgtype.Timestamptz
	)
	dest := []any{&idUUID, &a.Username, &emailText, &a.CreatedAt, &lastLoginTS}
	if withHash {
		dest = append(dest, &a.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.AdminWithPassword{}, err
	}
	a.ID = uuidOrEmpty(idUUID)
	a.Email = textOrEmpty(emailText)
	a.LastLoginAt = timestamptzPtr(lastLoginTS)
	return a, nil
}

func (s *AdminsStore) CreateAdmin(ctx context.Context, username, email, passwordHash string) (domain.Admin, error) {
	const q = `
		INSERT INTO admins (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, email, created_at, last_login_at
	`

	a, err := scanAdmin(s.pool.QueryRow(ctx, q, username, nullIfEmpty(email), passwordHash), false)
	if err != nil {
		return domain.Admin{}, mapAdminWriteError(err)
	}
	return a.Admin, nil
}

func (s *AdminsStore) FindAdminByUsername(ctx context.Context, username string) (domain.AdminWithPassword, error) {
	const q = `
		SELECT id, username, email, created_at, last_login_at, password_hash
		FROM admins
		WHERE username = $1
	`
	return s.findOne(ctx, "find admin by username", q, username)
}

func (s *AdminsStore) FindAdminByEmail(ctx context.Context, email string) (domain.AdminWithPassword, error) {
	const q = `
		SELECT id, username, email, created_at, last_login_at, password_hash
		FROM admins
		WHERE email IS NOT NULL AND lower(email) = lower($1)
		LIMIT 1
	`
	return s.findOne(ctx, "find admin by email", q, email)
}

func (s *AdminsStore) GetAdminByID(ctx context.Context, id string) (domain.Admin, error) {
	if !validUUID(id) {
		return domain.Admin{}, domain.ErrNotFound
	}
	const q = `
		SELECT id, username, email, created_at, last_login_at
		FROM admins
		WHERE id = $1
	`

	a, err := scanAdmin(s.pool.QueryRow(ctx, q, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Admin{}, domain.ErrNotFound
		}
		return domain.Admin{}, fmt.Errorf("get admin: %w", err)
	}
	return a.Admin, nil
}

func (s *AdminsStore) UpdateLastLogin(ctx context.Context, id string, when time.Time) error {
	const q = `UPDATE admins SET last_login_at = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, id, when); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (s *AdminsStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	const q = `UPDATE admins SET password_hash = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, id, passwordHash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

func (s *AdminsStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func (s *AdminsStore) findOne(ctx context.Context, op, q string, arg string) (domain.AdminWithPassword, error) {
	a, err := scanAdmin(s.pool.QueryRow(ctx, q, arg), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AdminWithPassword{}, domain.ErrNotFound
		}
		return domain.AdminWithPassword{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func mapAdminWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		switch pgerr.ConstraintName {
		case "admins_username_key":
			return domain.ErrUsernameTaken
		case "admins_email_key":
			return domain.ErrEmailTaken
		default:
			return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
		}
	}
	return fmt.Errorf("create admin: %w", err)
}
