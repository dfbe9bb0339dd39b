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

type CommentsStore struct {
	pool *pgxpool.Pool
}

func NewCommentsStore(pool *pgxpool.Pool) *CommentsStore {
	return &CommentsStore{pool: pool}
}

const commentColumns = `id, article_id, author_name, author_email, content, status, created_at, updated_at`

func scanComment(row pgx.Row) (domain.Comment, error) {
	var (
		c      domain.Comment
		idUUID pgtype.UUID
		status string
	)
	err := row.Scan(&idUUID, &c.ArticleID, &c.AuthorName, &c.AuthorEmail, &c.Content, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Comment{}, err
	}
	c.ID = uuidOrEmpty(idUUID)
	c.Status = domain.CommentStatus(status)
	return c, nil
}

func collectComments(rows pgx.Rows) ([]domain.Comment, error) {
	defer rows.Close()

	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CommentsStore) InsertPending(ctx context.Context, c domain.NewComment) (domain.Comment, error) {
	const q = `
		INSERT INTO comments (article_id, author_name, author_email, content, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING ` + commentColumns

	out, err := scanComment(s.pool.QueryRow(ctx, q, c.ArticleID, c.AuthorName, c.AuthorEmail, c.Content))
	if err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return out, nil
}

func (s *CommentsStore) ExistsDuplicate(ctx context.Context, articleID int64, email, content string, since time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM comments
			WHERE article_id = $1 AND author_email = $2 AND content = $3 AND created_at > $4
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, q, articleID, email, content, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate comment: %w", err)
	}
	return exists, nil
}

func (s *CommentsStore) CountByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) (int, error) {
	const q = `SELECT count(*) FROM comments WHERE article_id = $1 AND status = $2`

	var n int
	if err := s.pool.QueryRow(ctx, q, articleID, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

func (s *CommentsStore) ListByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	const q = `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE article_id = $1 AND status = $2
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, q, articleID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list article comments: %w", err)
	}
	out, err := collectComments(rows)
	if err != nil {
		return nil, fmt.Errorf("list article comments: %w", err)
	}
	return out, nil
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
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, q, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments by status: %w", err)
	}
	out, err := collectComments(rows)
	if err != nil {
		return nil, fmt.Errorf("list comments by status: %w", err)
	}
	return out, nil
}

func (s *CommentsStore) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	if !validUUID(id) {
		return domain.Comment{}, domain.ErrNotFound
	}
	const q = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	c, err := scanComment(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *CommentsStore) UpdateStatus(ctx context.Context, id string, status domain.CommentStatus) (domain.Comment, error) {
	if !validUUID(id) {
		return domain.Comment{}, domain.ErrNotFound
	}
	const q = `
		UPDATE comments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + commentColumns

	c, err := scanComment(s.pool.QueryRow(ctx, q, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("update comment status: %w", err)
	}
	return c, nil
}

func (s *CommentsStore) DeleteComment(ctx context.Context, id string) error {
	if !validUUID(id) {
		return domain.ErrNotFound
	}
	const q = `DELETE FROM comments WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *CommentsStore) CountByStatus(ctx context.Context) (domain.CommentStats, error) {
	const q = `
		SELECT
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'approved'),
			count(*) FILTER (WHERE status = 'rejected'),
			count(*)
		FROM comments
	`

	var st domain.CommentStats
	if err := s.pool.QueryRow(ctx, q).Scan(&st.Pending, &st.Approved, &st.Rejected, &st.Total); err != nil {
		return domain.CommentStats{}, fmt.Errorf("comment stats: %w", err)
	}
	return st, nil
}
