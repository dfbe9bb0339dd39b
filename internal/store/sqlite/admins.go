package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/google/uuid"
)

type AdminsStore struct {
	db  *sql.DB
	Now func() time.Time
}

func NewAdminsStore(db *sql.DB) *AdminsStore {
	return &AdminsStore{db: db}
}

func (s *AdminsStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func scanAdmin(row rowScanner) (domain.AdminWithPassword, error) {
	var (
		a         domain.AdminWithPassword
		email     sql.NullString
		created   int64
		lastLogin sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Username, &email, &a.PasswordHash, &created, &lastLogin); err != nil {
		return domain.AdminWithPassword{}, err
	}
	a.Email = email.String
	a.CreatedAt = fromMillis(created)
	a.LastLoginAt = nullMillis(lastLogin)
	return a, nil
}

func (s *AdminsStore) CreateAdmin(ctx context.Context, username, email, passwordHash string) (domain.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a := domain.Admin{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: fromMillis(toMillis(s.now())),
	}

	const q = `
		INSERT INTO admins (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q, a.ID, username, nullIfEmpty(email), passwordHash, toMillis(a.CreatedAt))
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed: admins.username"):
			return domain.Admin{}, domain.ErrUsernameTaken
		case strings.Contains(msg, "UNIQUE constraint failed: admins.email"):
			return domain.Admin{}, domain.ErrEmailTaken
		}
		return domain.Admin{}, fmt.Errorf("create admin: %w", err)
	}
	return a, nil
}

const adminColumns = `id, username, email, password_hash, created_at, last_login_at`

func (s *AdminsStore) findOne(ctx context.Context, op, where string, arg any) (domain.AdminWithPassword, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AdminWithPassword{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AdminWithPassword{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s *AdminsStore) FindAdminByUsername(ctx context.Context, username string) (domain.AdminWithPassword, error) {
	return s.findOne(ctx, "find admin by username", `username = ?`, username)
}

func (s *AdminsStore) FindAdminByEmail(ctx context.Context, email string) (domain.AdminWithPassword, error) {
	return s.findOne(ctx, "find admin by email", `email = lower(?)`, strings.TrimSpace(email))
}

func (s *AdminsStore) GetAdminByID(ctx context.Context, id string) (domain.Admin, error) {
	a, err := s.findOne(ctx, "get admin", `id = ?`, id)
	return a.Admin, err
}

func (s *AdminsStore) UpdateLastLogin(ctx context.Context, id string, when time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE admins SET last_login_at = ? WHERE id = ?`, toMillis(when), id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (s *AdminsStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE admins SET password_hash = ? WHERE id = ?`, passwordHash, id); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

func (s *AdminsStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
