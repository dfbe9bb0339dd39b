package service

import (
	"context"
	"log/slog"

	"Blogwebserver/internal/domain"
)

const (
	DefaultModerationPageSize = 50
	MaxModerationPageSize     = 200
)

type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// ModerationService is the only path that moves a comment out of pending.
type ModerationService struct {
	Comments CommentsStore
	Logger   *slog.Logger
}

func (s *ModerationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *ModerationService) List(ctx context.Context, status domain.CommentStatus, limit, offset int) ([]domain.Comment, error) {
	if status == "" {
		status = domain.CommentPending
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if limit <= 0 {
		limit = DefaultModerationPageSize
	}
	if limit > MaxModerationPageSize {
		limit = MaxModerationPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.Comments.ListByStatus(ctx, status, limit, offset)
}

func (s *ModerationService) Moderate(ctx context.Context, adminID, commentID string, action ModerationAction) (domain.Comment, error) {
	var status domain.CommentStatus
	switch action {
	case ActionApprove:
		status = domain.CommentApproved
	case ActionReject:
		status = domain.CommentRejected
	default:
		return domain.Comment{}, domain.ErrInvalidStatus
	}

	c, err := s.Comments.UpdateStatus(ctx, commentID, status)
	if err != nil {
		return domain.Comment{}, err
	}
	s.logger().Info("comment moderated", "comment_id", c.ID, "status", c.Status, "admin_id", adminID)
	return c, nil
}

func (s *ModerationService) Approve(ctx context.Context, adminID, commentID string) (domain.Comment, error) {
	return s.Moderate(ctx, adminID, commentID, ActionApprove)
}

func (s *ModerationService) Reject(ctx context.Context, adminID, commentID string) (domain.Comment, error) {
	return s.Moderate(ctx, adminID, commentID, ActionReject)
}

func (s *ModerationService) Delete(ctx context.Context, adminID, commentID string) error {
	if err := s.Comments.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.logger().Info("comment deleted", "comment_id", commentID, "admin_id", adminID)
	return nil
}

func (s *ModerationService) Stats(ctx context.Context) (domain.CommentStats, error) {
	return s.Comments.CountByStatus(ctx)
}
