package adminui

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/service"
)

type Opts struct {
	Logger *slog.Logger

	Auth         *service.AuthService
	Moderation   *service.ModerationService
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
	TrustProxy   bool

	// Throttle is shared with the JSON API so both login forms draw from the
	// same per-IP bucket. Nil disables it.
	Throttle *ratelimit.IPThrottle
}

func New(opts Opts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Auth == nil || opts.Moderation == nil {
		return http.NotFoundHandler()
	}

	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = service.DefaultSessionTTL
	}

	app := &app{
		logger:        logger,
		authSvc:       opts.Auth,
		moderationSvc: opts.Moderation,
		cookieCodec:   opts.CookieCodec,
		cookieSecure:  opts.CookieSecure,
		sessionTTL:    sessionTTL,
		trustProxy:    opts.TrustProxy,
		throttle:      opts.Throttle,
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Error("adminui: parse templates failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	app.templates = t

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin", app.redirectAdmin)
	mux.HandleFunc("GET /admin/{$}", app.requireAdmin(app.handleQueue))
	mux.HandleFunc("GET /admin/login", app.handleLoginGet)
	mux.HandleFunc("POST /admin/login", app.throttled(app.handleLoginPost))
	mux.HandleFunc("POST /admin/logout", app.throttled(app.handleLogoutPost))
	mux.HandleFunc("POST /admin/comments/{id}/{action}", app.throttled(app.requireAdmin(app.handleModeratePost)))
	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		logger.Error("adminui: static fs setup failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	static := http.StripPrefix("/admin/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("GET /admin/static/", static)
	mux.Handle("HEAD /admin/static/", static)

	return mux
}

type app struct {
	logger *slog.Logger

	authSvc       *service.AuthService
	moderationSvc *service.ModerationService

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration
	trustProxy   bool
	throttle     *ratelimit.IPThrottle

	templates *templates
}

type ctxKey int

const (
	ctxAdmin ctxKey = iota
	ctxSession
)

func (a *app) redirectAdmin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

// requireAdmin sends anyone without a live admin session to the login page.
// A session that failed the IP or timeout checks is already destroyed, so
// the stale cookie is cleared too.
func (a *app) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessID, ok := a.cookieCodec.SessionIDFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		admin, sess, err := a.authSvc.SessionAdmin(r.Context(), sessID, a.clientIP(r))
		if err != nil {
			if !isSessionRejection(err) {
				a.logger.Error("adminui: load session failed", "err", err)
				a.templates.renderError(w, http.StatusInternalServerError, "Error", "Something went wrong, please try again.")
				return
			}
			auth.ClearSessionCookie(w, a.cookieSecure)
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		ctx := withAdmin(r.Context(), admin, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func isSessionRejection(err error) bool {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrSessionHijack):
		return true
	}
	return false
}

func (a *app) throttled(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.throttle != nil && !a.throttle.Allow(a.clientIP(r), time.Now()) {
			w.Header().Set("Retry-After", "1")
			a.templates.renderError(w, http.StatusTooManyRequests, "Slow down", "Too many requests. Wait a moment and try again.")
			return
		}
		next(w, r)
	}
}

func (a *app) clientIP(r *http.Request) string {
	return auth.ClientIP(r, a.trustProxy)
}

func withAdmin(ctx context.Context, admin domain.Admin, sess domain.Session) context.Context {
	ctx = context.WithValue(ctx, ctxAdmin, admin)
	return context.WithValue(ctx, ctxSession, sess)
}

func currentAdmin(ctx context.Context) (domain.Admin, domain.Session) {
	admin, _ := ctx.Value(ctxAdmin).(domain.Admin)
	sess, _ := ctx.Value(ctxSession).(domain.Session)
	return admin, sess
}
