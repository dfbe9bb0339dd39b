// Package memory holds process-local stores used in development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/google/uuid"
)

type CommentsStore struct {
	Now func() time.Time

	mu       sync.RWMutex
	comments map[string]domain.Comment
}

func NewCommentsStore() *CommentsStore {
	return &CommentsStore{comments: make(map[string]domain.Comment)}
}

func (s *CommentsStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *CommentsStore) InsertPending(_ context.Context, c domain.NewComment) (domain.Comment, error) {
	now := s.now()
	out := domain.Comment{
		ID:          uuid.NewString(),
		ArticleID:   c.ArticleID,
		AuthorName:  c.AuthorName,
		AuthorEmail: c.AuthorEmail,
		Content:     c.Content,
		Status:      domain.CommentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.comments[out.ID] = out
	s.mu.Unlock()
	return out, nil
}

func (s *CommentsStore) ExistsDuplicate(_ context.Context, articleID int64, email, content string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.comments {
		if c.ArticleID == articleID && c.AuthorEmail == email && c.Content == content && c.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *CommentsStore) CountByArticle(_ context.Context, articleID int64, status domain.CommentStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.comments {
		if c.ArticleID == articleID && c.Status == status {
			n++
		}
	}
	return n, nil
}

// ListByArticle returns oldest first, the order a comment thread is read in.
func (s *CommentsStore) ListByArticle(_ context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	out := s.filter(func(c domain.Comment) bool {
		return c.ArticleID == articleID && c.Status == status
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByStatus returns newest first for the moderation queue.
func (s *CommentsStore) ListByStatus(_ context.Context, status domain.CommentStatus, limit, offset int) ([]domain.Comment, error) {
	out := s.filter(func(c domain.Comment) bool { return c.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return []domain.Comment{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *CommentsStore) GetComment(_ context.Context, id string) (domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *CommentsStore) UpdateStatus(_ context.Context, id string, status domain.CommentStatus) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = s.now()
	s.comments[id] = c
	return c, nil
}

func (s *CommentsStore) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *CommentsStore) CountByStatus(_ context.Context) (domain.CommentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st domain.CommentStats
	for _, c := range s.comments {
		switch c.Status {
		case domain.CommentPending:
			st.Pending++
		case domain.CommentApproved:
			st.Approved++
		case domain.CommentRejected:
			st.Rejected++
		}
	}
	st.Total = len(s.comments)
	return st, nil
}

func (s *CommentsStore) filter(keep func(domain.Comment) bool) []domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Comment{}
	for _, c := range s.comments {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
