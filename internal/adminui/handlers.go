package adminui

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/service"
)

const queuePageSize = 50

var queueStatuses = []string{
	string(domain.CommentPending),
	string(domain.CommentApproved),
	string(domain.CommentRejected),
}

var notices = map[string]string{
	"approved": "Comment approved.",
	"rejected": "Comment rejected.",
	"deleted":  "Comment deleted.",
}

func (a *app) handleQueue(w http.ResponseWriter, r *http.Request) {
	admin, sess := currentAdmin(r.Context())

	status := domain.CommentStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.CommentPending
	}
	if !status.Valid() {
		a.templates.renderError(w, http.StatusBadRequest, "Bad request", "Unknown comment status.")
		return
	}

	list, err := a.moderationSvc.List(r.Context(), status, queuePageSize, 0)
	if err != nil {
		a.logger.Error("adminui: list comments failed", "err", err, "status", status)
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Failed to load comments.")
		return
	}
	stats, err := a.moderationSvc.Stats(r.Context())
	if err != nil {
		a.logger.Error("adminui: comment stats failed", "err", err)
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Failed to load comments.")
		return
	}

	rows := make([]commentRow, 0, len(list))
	for _, c := range list {
		rows = append(rows, commentRow{
			ID:          c.ID,
			ArticleID:   c.ArticleID,
			AuthorName:  c.AuthorName,
			AuthorEmail: c.AuthorEmail,
			Content:     c.Content,
			Status:      string(c.Status),
			CreatedAt:   c.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	a.templates.renderQueue(w, http.StatusOK, queueViewData{
		Title:     "Comments",
		Admin:     admin.Username,
		CSRFToken: sess.CSRFToken,
		Status:    string(status),
		Statuses:  queueStatuses,
		Stats: statsView{
			Pending:  stats.Pending,
			Approved: stats.Approved,
			Rejected: stats.Rejected,
			Total:    stats.Total,
		},
		Comments: rows,
		Notice:   notices[r.URL.Query().Get("done")],
	})
}

func (a *app) handleModeratePost(w http.ResponseWriter, r *http.Request) {
	admin, sess := currentAdmin(r.Context())
	if err := r.ParseForm(); err != nil {
		a.templates.renderError(w, http.StatusBadRequest, "Bad request", "Invalid form.")
		return
	}
	if !auth.ValidCSRFToken(sess.CSRFToken, r.PostForm.Get("csrf_token")) {
		a.templates.renderError(w, http.StatusForbidden, "Forbidden", "Security check failed, please reload the page and try again.")
		return
	}

	id := r.PathValue("id")
	var (
		done string
		err  error
	)
	switch action := r.PathValue("action"); action {
	case "delete":
		err = a.moderationSvc.Delete(r.Context(), admin.ID, id)
		done = "deleted"
	default:
		var c domain.Comment
		c, err = a.moderationSvc.Moderate(r.Context(), admin.ID, id, service.ModerationAction(action))
		done = string(c.Status)
	}
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		a.templates.renderError(w, http.StatusNotFound, "Not found", "That comment no longer exists.")
		return
	case errors.Is(err, domain.ErrInvalidStatus):
		a.templates.renderError(w, http.StatusBadRequest, "Bad request", "Unknown moderation action.")
		return
	default:
		a.logger.Error("adminui: moderate comment failed", "err", err, "comment_id", id)
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Failed to update the comment.")
		return
	}

	back := url.Values{"done": {done}}
	if st := domain.CommentStatus(r.PostForm.Get("status")); st.Valid() {
		back.Set("status", string(st))
	}
	http.Redirect(w, r, "/admin/?"+back.Encode(), http.StatusSeeOther)
}

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	sessID, _ := a.cookieCodec.SessionIDFromRequest(r)
	sess, created, err := a.authSvc.StartSession(r.Context(), sessID)
	if err != nil {
		a.logger.Error("adminui: start session failed", "err", err)
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Something went wrong, please try again.")
		return
	}
	if created {
		auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionTTL, a.cookieSecure)
	}
	a.templates.renderLogin(w, http.StatusOK, loginViewData{Title: "Sign in", CSRFToken: sess.CSRFToken})
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	sessID, _ := a.cookieCodec.SessionIDFromRequest(r)
	view := loginViewData{Title: "Sign in"}
	if sess, err := a.authSvc.LookupSession(r.Context(), sessID); err == nil {
		view.CSRFToken = sess.CSRFToken
	}

	if err := r.ParseForm(); err != nil {
		view.Error = "Invalid form"
		a.templates.renderLogin(w, http.StatusBadRequest, view)
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	view.Username = username
	if username == "" || password == "" {
		view.Error = "Username and password are required"
		a.templates.renderLogin(w, http.StatusBadRequest, view)
		return
	}

	ip := a.clientIP(r)
	admin, sess, err := a.authSvc.Login(r.Context(), service.LoginInput{
		SessionID: sessID,
		CSRFToken: r.PostForm.Get("csrf_token"),
		Username:  username,
		Password:  password,
		IP:        ip,
	})
	if err != nil {
		status, msg := a.loginFailure(r, err, username, ip)
		view.Error = msg
		a.templates.renderLogin(w, status, view)
		return
	}

	a.logger.Info("adminui: admin signed in", "admin_id", admin.ID)
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 || ttl > a.sessionTTL {
		ttl = a.sessionTTL
	}
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), ttl, a.cookieSecure)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

func (a *app) loginFailure(r *http.Request, err error, username, ip string) (int, string) {
	var rl *domain.RateLimitError
	switch {
	case errors.As(err, &rl):
		mins := int(math.Ceil(rl.RetryAfter.Minutes()))
		if mins < 1 {
			mins = 1
		}
		return http.StatusTooManyRequests, fmt.Sprintf("Too many failed login attempts. Try again in %d minute(s).", mins)
	case errors.Is(err, domain.ErrCSRF):
		return http.StatusForbidden, "Security check failed, please reload the page and try again."
	case errors.Is(err, domain.ErrInvalidCredentials):
		remaining, rerr := a.authSvc.RemainingLoginAttempts(r.Context(), username, ip)
		if rerr != nil {
			return http.StatusUnauthorized, "Invalid username or password."
		}
		return http.StatusUnauthorized, fmt.Sprintf("Invalid username or password. %d attempt(s) left.", remaining)
	default:
		a.logger.Error("adminui: login failed", "err", err)
		return http.StatusInternalServerError, "Something went wrong, please try again."
	}
}

func (a *app) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	if sessID, ok := a.cookieCodec.SessionIDFromRequest(r); ok {
		sess, err := a.authSvc.LookupSession(r.Context(), sessID)
		if err == nil && auth.ValidCSRFToken(sess.CSRFToken, r.PostFormValue("csrf_token")) {
			if err := a.authSvc.Logout(r.Context(), sessID); err != nil {
				a.logger.Error("adminui: logout failed", "err", err)
			}
		}
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
