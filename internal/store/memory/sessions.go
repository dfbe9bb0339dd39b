package memory

import (
	"context"
	"sync"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/google/uuid"
)

type SessionsStore struct {
	Now func() time.Time

	mu       sync.Mutex
	sessions map[string]domain.Session
}

func NewSessionsStore() *SessionsStore {
	return &SessionsStore{sessions: make(map[string]domain.Session)}
}

func (s *SessionsStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// CreateSession stores sess under a fresh ID and returns it.
func (s *SessionsStore) CreateSession(_ context.Context, sess domain.Session) (domain.Session, error) {
	sess.ID = uuid.NewString()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// GetSession returns ErrNotFound for unknown or expired sessions.
func (s *SessionsStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || !sess.ExpiresAt.After(s.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *SessionsStore) RegenerateSessionID(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	delete(s.sessions, id)
	sess.ID = uuid.NewString()
	s.sessions[sess.ID] = sess
	return sess.ID, nil
}

func (s *SessionsStore) UpdateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return domain.ErrNotFound
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionsStore) DestroySession(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *SessionsStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
