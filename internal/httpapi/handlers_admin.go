package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/service"
)

type moderationListResponse struct {
	Status   string            `json:"status"`
	Comments []commentResponse `json:"comments"`
}

func (a *api) handleAdminCommentsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	status := domain.CommentStatus(q.Get("status"))
	if status == "" {
		status = domain.CommentPending
	}

	list, err := a.moderationSvc.List(r.Context(), status, limit, offset)
	if err != nil {
		a.logInfraError("list comments for moderation failed", err)
		WriteDomainError(w, err)
		return
	}

	out := moderationListResponse{Status: string(status), Comments: make([]commentResponse, 0, len(list))}
	for _, c := range list {
		out.Comments = append(out.Comments, adminComment(c))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleAdminCommentsModerate(w http.ResponseWriter, r *http.Request) {
	admin, _ := CurrentAdmin(r.Context())
	action := service.ModerationAction(r.PathValue("action"))

	c, err := a.moderationSvc.Moderate(r.Context(), admin.ID, r.PathValue("id"), action)
	if err != nil {
		a.logInfraError("moderate comment failed", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, adminComment(c))
}

func (a *api) handleAdminCommentsDelete(w http.ResponseWriter, r *http.Request) {
	admin, _ := CurrentAdmin(r.Context())
	if err := a.moderationSvc.Delete(r.Context(), admin.ID, r.PathValue("id")); err != nil {
		a.logInfraError("delete comment failed", err)
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAdminCommentsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.moderationSvc.Stats(r.Context())
	if err != nil {
		a.logInfraError("comment stats failed", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// logInfraError logs errors that are not an expected domain outcome.
func (a *api) logInfraError(msg string, err error) {
	if isDomainError(err) {
		return
	}
	a.logger.Error(msg, "err", err)
}

func isDomainError(err error) bool {
	for _, target := range []error{domain.ErrNotFound, domain.ErrInvalidStatus, domain.ErrValidation} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
