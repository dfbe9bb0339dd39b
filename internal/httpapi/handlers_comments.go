package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/service"
)

type commentResponse struct {
	ID          string `json:"id"`
	ArticleID   int64  `json:"article_id"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email,omitempty"`
	Content     string `json:"content"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// publicComment leaves out the author's email and moderation fields.
func publicComment(c domain.Comment) commentResponse {
	return commentResponse{
		ID:         c.ID,
		ArticleID:  c.ArticleID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func adminComment(c domain.Comment) commentResponse {
	return commentResponse{
		ID:          c.ID,
		ArticleID:   c.ArticleID,
		AuthorName:  c.AuthorName,
		AuthorEmail: c.AuthorEmail,
		Content:     c.Content,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type submitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func articleIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a *api) handleCommentsCreate(w http.ResponseWriter, r *http.Request) {
	articleID, ok := articleIDFromPath(r)
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "article not found")
		return
	}

	fields, err := readFields(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	sess, err := a.authSvc.LookupSession(r.Context(), a.sessionID(r))
	if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		a.logger.Error("lookup session failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	res, err := a.commentSvc.Submit(r.Context(), sess, service.CommentSubmission{
		ArticleID:   articleID,
		AuthorName:  fields["author_name"],
		AuthorEmail: fields["author_email"],
		Content:     fields["comment_content"],
		CSRFToken:   fields["csrf_token"],
		Honeypot:    fields[auth.HoneypotField(sess.ID)],
		IP:          a.clientIP(r),
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, submitResponse{Status: string(res.Status), Message: res.Message})
}

type commentListResponse struct {
	Count    int               `json:"count"`
	Comments []commentResponse `json:"comments"`
}

func (a *api) handleCommentsList(w http.ResponseWriter, r *http.Request) {
	articleID, ok := articleIDFromPath(r)
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "article not found")
		return
	}

	list, err := a.commentSvc.ApprovedComments(r.Context(), articleID)
	if err != nil {
		a.logger.Error("list comments failed", "err", err, "article_id", articleID)
		WriteDomainError(w, err)
		return
	}

	out := commentListResponse{Count: len(list), Comments: make([]commentResponse, 0, len(list))}
	for _, c := range list {
		out.Comments = append(out.Comments, publicComment(c))
	}
	WriteJSON(w, http.StatusOK, out)
}
