package httpapi

import (
	"net/http"

	"Blogwebserver/internal/auth"
)

type sessionResponse struct {
	CSRFToken     string `json:"csrf_token"`
	HoneypotField string `json:"honeypot_field"`
	Authenticated bool   `json:"authenticated"`
}

// handleSession hands a visitor the CSRF token and honeypot field name their
// comment or login form must carry.
func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, created, err := a.authSvc.StartSession(r.Context(), a.sessionID(r))
	if err != nil {
		a.logger.Error("start session failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	if created {
		auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionTTL, a.cookieSecure)
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, sessionResponse{
		CSRFToken:     sess.CSRFToken,
		HoneypotField: auth.HoneypotField(sess.ID),
		Authenticated: sess.Authenticated(),
	})
}
