package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/google/uuid"
)

type CommentsStore struct {
	db  *sql.DB
	Now func() time.Time
}

func NewCommentsStore(db *sql.DB) *CommentsStore {
	return &CommentsStore{db: db}
}

func (s *CommentsStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

const commentColumns = `id, article_id, author_name, author_email, content, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (domain.Comment, error) {
	var (
		c                domain.Comment
		status           string
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.ArticleID, &c.AuthorName, &c.AuthorEmail, &c.Content, &status, &created, &updated); err != nil {
		return domain.Comment{}, err
	}
	c.Status = domain.CommentStatus(status)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (s *CommentsStore) query(ctx context.Context, op, q string, args ...any) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *CommentsStore) InsertPending(ctx context.Context, c domain.NewComment) (domain.Comment, error) {
	now := fromMillis(toMillis(s.now()))
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

	const q = `
		INSERT INTO comments (` + commentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		out.ID, out.ArticleID, out.AuthorName, out.AuthorEmail, out.Content,
		string(out.Status), toMillis(now), toMillis(now),
	)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return out, nil
}

func (s *CommentsStore) ExistsDuplicate(ctx context.Context, articleID int64, email, content string, since time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM comments
			WHERE article_id = ? AND author_email = ? AND content = ? AND created_at > ?
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, articleID, email, content, toMillis(since)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate comment: %w", err)
	}
	return exists, nil
}

func (s *CommentsStore) CountByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) (int, error) {
	const q = `SELECT count(*) FROM comments WHERE article_id = ? AND status = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, articleID, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

func (s *CommentsStore) ListByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	const q = `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE article_id = ? AND status = ?
		ORDER BY created_at ASC
	`
	return s.query(ctx, "list article comments", q, articleID, string(status))
}

func (s *CommentsStore) ListByStatus(ctx context.Context, status domain.CommentStatus, limit, offset int) ([]domain.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	return s.query(ctx, "list comments by status", q, string(status), limit, offset)
}

func (s *CommentsStore) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	const q = `SELECT ` + commentColumns + ` FROM comments WHERE id = ?`
	c, err := scanComment(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *CommentsStore) UpdateStatus(ctx context.Context, id string, status domain.CommentStatus) (domain.Comment, error) {
	const q = `UPDATE comments SET status = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, string(status), toMillis(s.now()), id)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("update comment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Comment{}, domain.ErrNotFound
	}
	return s.GetComment(ctx, id)
}

func (s *CommentsStore) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *CommentsStore) CountByStatus(ctx context.Context) (domain.CommentStats, error) {
	const q = `
		SELECT
			coalesce(sum(status = 'pending'), 0),
			coalesce(sum(status = 'approved'), 0),
			coalesce(sum(status = 'rejected'), 0),
			count(*)
		FROM comments
	`
	var st domain.CommentStats
	if err := s.db.QueryRowContext(ctx, q).Scan(&st.Pending, &st.Approved, &st.Rejected, &st.Total); err != nil {
		return domain.CommentStats{}, fmt.Errorf("comment stats: %w", err)
	}
	return st, nil
}
