package service

import (
	"context"
	"time"

	"Blogwebserver/internal/domain"
)

type AdminsStore interface {
	CreateAdmin(ctx context.Context, username, email, passwordHash string) (domain.Admin, error)
	FindAdminByUsername(ctx context.Context, username string) (domain.AdminWithPassword, error)
	FindAdminByEmail(ctx context.Context, email string) (domain.AdminWithPassword, error)
	GetAdminByID(ctx context.Context, id string) (domain.Admin, error)
	UpdateLastLogin(ctx context.Context, id string, when time.Time) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	CountAdmins(ctx context.Context) (int, error)
}

type SessionsStore interface {
	CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	RegenerateSessionID(ctx context.Context, id string) (string, error)
	UpdateSession(ctx context.Context, sess domain.Session) error
	DestroySession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type CommentsStore interface {
	InsertPending(ctx context.Context, c domain.NewComment) (domain.Comment, error)
	ExistsDuplicate(ctx context.Context, articleID int64, email, content string, since time.Time) (bool, error)
	CountByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) (int, error)
	ListByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error)
	ListByStatus(ctx context.Context, status domain.CommentStatus, limit, offset int) ([]domain.Comment, error)
	GetComment(ctx context.Context, id string) (domain.Comment, error)
	UpdateStatus(ctx context.Context, id string, status domain.CommentStatus) (domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (domain.CommentStats, error)
}
