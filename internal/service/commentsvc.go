package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/metrics"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/spam"
)

// PendingMessage is returned for every accepted submission, including the
// ones silently dropped by the honeypot.
const PendingMessage = "Thank you! Your comment has been sent for moderation."

const DefaultDuplicateWindow = time.Hour

const logContentRunes = 64

type CommentNotifier interface {
	NotifyPendingComment(ctx context.Context, c domain.Comment) error
}

type CommentSubmission struct {
	ArticleID   int64
	AuthorName  string
	AuthorEmail string
	Content     string
	CSRFToken   string
	Honeypot    string
	IP          string
}

// SubmitResult has the same shape whether the comment was stored or dropped.
type SubmitResult struct {
	Status  domain.CommentStatus
	Message string
}

type CommentService struct {
	Comments        CommentsStore
	Limiter         *ratelimit.Limiter
	Notifier        CommentNotifier
	Logger          *slog.Logger
	DuplicateWindow time.Duration
	Now             func() time.Time
}

func (s *CommentService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *CommentService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Submit runs a public comment through the gate: CSRF, honeypot, rate limit,
// validation, spam heuristics, duplicate check, then persistence. sess is the
// submitter's session and carries the expected CSRF token.
func (s *CommentService) Submit(ctx context.Context, sess domain.Session, in CommentSubmission) (SubmitResult, error) {
	log := s.logger().With("article_id", in.ArticleID, "ip", in.IP)
	accepted := SubmitResult{Status: domain.CommentPending, Message: PendingMessage}

	if !auth.ValidCSRFToken(sess.CSRFToken, in.CSRFToken) {
		log.Warn("comment rejected", "stage", metrics.StageCSRF)
		metrics.RecordGate(string(domain.ActionComment), metrics.StageCSRF, metrics.OutcomeRejected)
		return SubmitResult{}, domain.ErrCSRF
	}

	if in.Honeypot != "" {
		log.Warn("comment dropped", "stage", metrics.StageHoneypot)
		metrics.RecordGate(string(domain.ActionComment), metrics.StageHoneypot, metrics.OutcomeDropped)
		return accepted, nil
	}

	policy := s.Limiter.Policy(domain.ActionComment)
	ok, err := s.Limiter.Check(ctx, domain.ActionComment, in.IP, policy)
	if err != nil {
		return SubmitResult{}, s.fail(log, metrics.StageRate, err)
	}
	if !ok {
		wait, err := s.Limiter.RetryAfter(ctx, domain.ActionComment, in.IP, policy)
		if err != nil {
			return SubmitResult{}, s.fail(log, metrics.StageRate, err)
		}
		log.Warn("comment rejected", "stage", metrics.StageRate, "retry_after", wait)
		metrics.RecordGate(string(domain.ActionComment), metrics.StageRate, metrics.OutcomeRejected)
		return SubmitResult{}, &domain.RateLimitError{Kind: domain.ActionComment, RetryAfter: wait}
	}

	name := strings.TrimSpace(in.AuthorName)
	email := strings.ToLower(strings.TrimSpace(in.AuthorEmail))
	content := strings.TrimSpace(in.Content)

	if msgs := spam.ValidateComment(name, email, content); len(msgs) > 0 {
		log.Info("comment rejected", "stage", metrics.StageValidate, "violations", len(msgs))
		metrics.RecordGate(string(domain.ActionComment), metrics.StageValidate, metrics.OutcomeRejected)
		return SubmitResult{}, domain.NewValidationError(msgs...)
	}

	if spam.CheckSpam(content, email) {
		log.Warn("comment rejected", "stage", metrics.StageSpam, "content", spam.Truncate(content, logContentRunes))
		metrics.RecordGate(string(domain.ActionComment), metrics.StageSpam, metrics.OutcomeRejected)
		if err := s.Limiter.Increment(ctx, domain.ActionComment, in.IP, policy); err != nil {
			return SubmitResult{}, s.fail(log, metrics.StageSpam, err)
		}
		return SubmitResult{}, domain.ErrSpam
	}

	window := s.DuplicateWindow
	if window <= 0 {
		window = DefaultDuplicateWindow
	}
	dup, err := s.Comments.ExistsDuplicate(ctx, in.ArticleID, email, content, s.now().Add(-window))
	if err != nil {
		return SubmitResult{}, s.fail(log, metrics.StageDuplicate, err)
	}
	if dup {
		log.Warn("comment rejected", "stage", metrics.StageDuplicate, "content", spam.Truncate(content, logContentRunes))
		metrics.RecordGate(string(domain.ActionComment), metrics.StageDuplicate, metrics.OutcomeRejected)
		return SubmitResult{}, domain.ErrDuplicate
	}

	c, err := s.Comments.InsertPending(ctx, domain.NewComment{
		ArticleID:   in.ArticleID,
		AuthorName:  name,
		AuthorEmail: email,
		Content:     content,
	})
	if err != nil {
		return SubmitResult{}, s.fail(log, metrics.StagePersist, err)
	}
	if err := s.Limiter.Increment(ctx, domain.ActionComment, in.IP, policy); err != nil {
		log.Error("comment rate increment failed", "err", err, "comment_id", c.ID)
	}
	metrics.RecordGate(string(domain.ActionComment), metrics.StagePersist, metrics.OutcomeAccepted)
	log.Info("comment accepted", "comment_id", c.ID)

	if s.Notifier != nil {
		if err := s.Notifier.NotifyPendingComment(ctx, c); err != nil {
			log.Error("comment notification failed", "err", err, "comment_id", c.ID)
		}
	}

	return accepted, nil
}

func (s *CommentService) fail(log *slog.Logger, stage string, err error) error {
	log.Error("comment gate failed", "stage", stage, "err", err)
	metrics.RecordGate(string(domain.ActionComment), stage, metrics.OutcomeFailed)
	return fmt.Errorf("comment gate %s: %w", stage, err)
}

// ApprovedComments lists the public thread of an article with markup stripped.
func (s *CommentService) ApprovedComments(ctx context.Context, articleID int64) ([]domain.Comment, error) {
	list, err := s.Comments.ListByArticle(ctx, articleID, domain.CommentApproved)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].AuthorName = spam.Sanitize(list[i].AuthorName)
		list[i].Content = spam.Sanitize(list[i].Content)
	}
	return list, nil
}

func (s *CommentService) ApprovedCount(ctx context.Context, articleID int64) (int, error) {
	return s.Comments.CountByArticle(ctx, articleID, domain.CommentApproved)
}
