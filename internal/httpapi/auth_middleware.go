package httpapi

import (
	"context"
	"errors"
	"net/http"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
)

type authCtxKey int

const (
	authAdminKey authCtxKey = iota
	authSessionKey
)

const csrfHeader = "X-CSRF-Token"

func (a *api) clientIP(r *http.Request) string {
	return auth.ClientIP(r, a.trustProxy)
}

func (a *api) sessionID(r *http.Request) string {
	id, _ := a.cookieCodec.SessionIDFromRequest(r)
	return id
}

func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessID := a.sessionID(r)
		if sessID == "" {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		admin, sess, err := a.authSvc.SessionAdmin(r.Context(), sessID, a.clientIP(r))
		if err != nil {
			if errors.Is(err, domain.ErrSessionHijack) || errors.Is(err, domain.ErrSessionExpired) || errors.Is(err, domain.ErrUnauthorized) {
				auth.ClearSessionCookie(w, a.cookieSecure)
			} else {
				a.logger.Error("resolve admin session failed", "err", err)
			}
			WriteDomainError(w, err)
			return
		}

		noteAdmin(r.Context(), admin.ID)
		ctx := context.WithValue(r.Context(), authAdminKey, admin)
		ctx = context.WithValue(ctx, authSessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// requireCSRF guards admin JSON mutations; the token travels in a header.
func (a *api) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := CurrentSession(r.Context())
		if !ok || !auth.ValidCSRFToken(sess.CSRFToken, r.Header.Get(csrfHeader)) {
			WriteDomainError(w, domain.ErrCSRF)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func CurrentAdmin(ctx context.Context) (domain.Admin, bool) {
	u, ok := ctx.Value(authAdminKey).(domain.Admin)
	return u, ok
}

func CurrentSession(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(authSessionKey).(domain.Session)
	return s, ok
}
