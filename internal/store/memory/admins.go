package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/google/uuid"
)

type AdminsStore struct {
	Now func() time.Time

	mu     sync.RWMutex
	admins map[string]domain.AdminWithPassword
}

func NewAdminsStore() *AdminsStore {
	return &AdminsStore{admins: make(map[string]domain.AdminWithPassword)}
}

func (s *AdminsStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AdminsStore) CreateAdmin(_ context.Context, username, email, passwordHash string) (domain.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.admins {
		if a.Username == username {
			return domain.Admin{}, domain.ErrUsernameTaken
		}
		if email != "" && a.Email == email {
			return domain.Admin{}, domain.ErrEmailTaken
		}
	}

	a := domain.AdminWithPassword{
		Admin: domain.Admin{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			CreatedAt: s.now(),
		},
		PasswordHash: passwordHash,
	}
	s.admins[a.ID] = a
	return a.Admin, nil
}

func (s *AdminsStore) FindAdminByUsername(_ context.Context, username string) (domain.AdminWithPassword, error) {
	return s.find(func(a domain.AdminWithPassword) bool { return a.Username == username })
}

func (s *AdminsStore) FindAdminByEmail(_ context.Context, email string) (domain.AdminWithPassword, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.AdminWithPassword{}, domain.ErrNotFound
	}
	return s.find(func(a domain.AdminWithPassword) bool { return a.Email == email })
}

func (s *AdminsStore) GetAdminByID(_ context.Context, id string) (domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[id]
	if !ok {
		return domain.Admin{}, domain.ErrNotFound
	}
	return a.Admin, nil
}

func (s *AdminsStore) UpdateLastLogin(_ context.Context, id string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.admins[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.LastLoginAt = &when
	s.admins[id] = a
	return nil
}

func (s *AdminsStore) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.admins[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = passwordHash
	s.admins[id] = a
	return nil
}

func (s *AdminsStore) CountAdmins(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins), nil
}

func (s *AdminsStore) find(match func(domain.AdminWithPassword) bool) (domain.AdminWithPassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.admins {
		if match(a) {
			return a, nil
		}
	}
	return domain.AdminWithPassword{}, domain.ErrNotFound
}
