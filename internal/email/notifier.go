// Package email sends moderator notifications over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/spam"
)

var ErrQueueFull = errors.New("email queue full")

const (
	defaultQueueSize = 64
	sendTimeout      = 30 * time.Second
	previewRunes     = 280
)

// ModeratorNotifier mails the moderator about new pending comments. Messages
// are queued and sent by Run so a slow SMTP server never delays a request.
type ModeratorNotifier struct {
	SMTP      SMTPSettings
	FromName  string
	FromEmail string
	ToEmail   string
	// AdminURL is the full link to the moderation queue; empty omits it.
	AdminURL string
	Logger   *slog.Logger
	Send     func(ctx context.Context, settings SMTPSettings, msg Message) error

	queue chan Message
}

func NewModeratorNotifier(settings SMTPSettings, fromEmail, toEmail string, logger *slog.Logger) *ModeratorNotifier {
	return &ModeratorNotifier{
		SMTP:      settings,
		FromName:  "Blog comments",
		FromEmail: fromEmail,
		ToEmail:   toEmail,
		Logger:    logger,
		Send:      SendSMTP,
		queue:     make(chan Message, defaultQueueSize),
	}
}

func (n *ModeratorNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// NotifyPendingComment enqueues a notification. It never blocks.
func (n *ModeratorNotifier) NotifyPendingComment(_ context.Context, c domain.Comment) error {
	select {
	case n.queue <- n.pendingMessage(c):
		return nil
	default:
		return ErrQueueFull
	}
}

// Run sends queued messages until ctx is done.
func (n *ModeratorNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			err := n.Send(sendCtx, n.SMTP, msg)
			cancel()
			if err != nil {
				n.logger().Error("moderator email failed", "err", err, "to", msg.ToEmail)
				continue
			}
			n.logger().Info("moderator email sent", "to", msg.ToEmail, "subject", msg.Subject)
		}
	}
}

// SetPublicURL points the review link at the admin queue under the site's
// public URL. A nil URL clears the link.
func (n *ModeratorNotifier) SetPublicURL(public *url.URL) {
	if public == nil {
		n.AdminURL = ""
		return
	}
	u := *public
	u.RawQuery, u.Fragment = "", ""
	n.AdminURL = strings.TrimRight(u.JoinPath("admin").String(), "/") + "/"
}

func (n *ModeratorNotifier) pendingMessage(c domain.Comment) Message {
	lines := []string{
		fmt.Sprintf("A new comment on article %d is waiting for moderation.", c.ArticleID),
		"",
		"Author: " + c.AuthorName + " <" + c.AuthorEmail + ">",
		"Received: " + c.CreatedAt.UTC().Format(time.RFC3339),
		"",
		spam.Truncate(c.Content, previewRunes),
	}
	if n.AdminURL != "" {
		lines = append(lines, "", "Review it at "+n.AdminURL)
	}
	return Message{
		FromName:  n.FromName,
		FromEmail: n.FromEmail,
		ToEmail:   n.ToEmail,
		Subject:   fmt.Sprintf("New comment pending on article %d", c.ArticleID),
		TextBody:  strings.Join(lines, "\n"),
	}
}
