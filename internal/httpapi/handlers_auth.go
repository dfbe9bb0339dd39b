package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/service"
)

type adminResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginResponse struct {
	Admin     adminResponse `json:"admin"`
	CSRFToken string        `json:"csrf_token"`
}

type invalidLoginEnvelope struct {
	Error invalidLoginError `json:"error"`
}

type invalidLoginError struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remaining_attempts"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	username := strings.TrimSpace(fields["username"])
	password := fields["password"]
	var missing []string
	if username == "" {
		missing = append(missing, "username is required")
	}
	if password == "" {
		missing = append(missing, "password is required")
	}
	if len(missing) > 0 {
		WriteDomainError(w, domain.NewValidationError(missing...))
		return
	}

	ip := a.clientIP(r)
	admin, sess, err := a.authSvc.Login(r.Context(), service.LoginInput{
		SessionID: a.sessionID(r),
		CSRFToken: fields["csrf_token"],
		Username:  username,
		Password:  password,
		IP:        ip,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			a.writeInvalidLogin(w, r, username, ip)
			return
		}
		WriteDomainError(w, err)
		return
	}

	a.writeLoggedIn(w, admin, sess)
}

// writeInvalidLogin tells the user how many attempts are left before lockout.
func (a *api) writeInvalidLogin(w http.ResponseWriter, r *http.Request, username, ip string) {
	remaining, err := a.authSvc.RemainingLoginAttempts(r.Context(), username, ip)
	if err != nil {
		a.logger.Error("remaining login attempts failed", "err", err)
		WriteDomainError(w, domain.ErrInvalidCredentials)
		return
	}
	WriteJSON(w, http.StatusUnauthorized, invalidLoginEnvelope{Error: invalidLoginError{
		Code:              "invalid_credentials",
		Message:           "invalid username or password",
		RemainingAttempts: remaining,
	}})
}

func (a *api) writeLoggedIn(w http.ResponseWriter, admin domain.Admin, sess domain.Session) {
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), time.Until(sess.ExpiresAt), a.cookieSecure)
	WriteJSON(w, http.StatusOK, loginResponse{
		Admin:     adminResponse{ID: admin.ID, Username: admin.Username, Email: admin.Email},
		CSRFToken: sess.CSRFToken,
	})
}

type idTokenRequest struct {
	IDToken   string `json:"id_token"`
	CSRFToken string `json:"csrf_token"`
}

func (a *api) handleAuthLoginGoogle(w http.ResponseWriter, r *http.Request) {
	a.handleAuthLoginExternal(w, r, auth.ProviderGoogle)
}

func (a *api) handleAuthLoginApple(w http.ResponseWriter, r *http.Request) {
	a.handleAuthLoginExternal(w, r, auth.ProviderApple)
}

func (a *api) handleAuthLoginExternal(w http.ResponseWriter, r *http.Request, provider auth.Provider) {
	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		WriteDomainError(w, domain.NewValidationError("id_token is required"))
		return
	}

	in := service.ExternalLoginInput{
		SessionID: a.sessionID(r),
		CSRFToken: req.CSRFToken,
		IDToken:   req.IDToken,
		IP:        a.clientIP(r),
	}
	var (
		admin domain.Admin
		sess  domain.Session
		err   error
	)
	if provider == auth.ProviderApple {
		admin, sess, err = a.authSvc.LoginWithApple(r.Context(), in)
	} else {
		admin, sess, err = a.authSvc.LoginWithGoogle(r.Context(), in)
	}
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.writeLoggedIn(w, admin, sess)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	sessID := a.sessionID(r)
	if sessID != "" {
		sess, err := a.authSvc.LookupSession(r.Context(), sessID)
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
		case err != nil:
			a.logger.Error("lookup session failed", "err", err)
			WriteDomainError(w, err)
			return
		case !auth.ValidCSRFToken(sess.CSRFToken, r.Header.Get(csrfHeader)):
			WriteDomainError(w, domain.ErrCSRF)
			return
		default:
			if err := a.authSvc.Logout(r.Context(), sessID); err != nil {
				a.logger.Error("logout failed", "err", err)
			}
		}
	}

	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

type attemptsResponse struct {
	Remaining         int `json:"remaining"`
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

func (a *api) handleAuthAttempts(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		WriteDomainError(w, domain.NewValidationError("username is required"))
		return
	}

	ip := a.clientIP(r)
	remaining, err := a.authSvc.RemainingLoginAttempts(r.Context(), username, ip)
	if err != nil {
		a.logger.Error("remaining login attempts failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	wait, err := a.authSvc.LoginRetryAfter(r.Context(), username, ip)
	if err != nil {
		a.logger.Error("login retry after failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	out := attemptsResponse{Remaining: remaining}
	if wait > 0 {
		out.RetryAfterSeconds = retryAfterSeconds(wait)
	}
	WriteJSON(w, http.StatusOK, out)
}
