package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/metrics"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth         *service.AuthService
	Comments     *service.CommentService
	Moderation   *service.ModerationService
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
	TrustProxy   bool

	// Throttle is the per-IP POST throttle, shared with the admin UI. When
	// nil one is built from RequestRate and RequestBurst.
	Throttle     *ratelimit.IPThrottle
	RequestRate  float64
	RequestBurst int
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	throttle := opts.Throttle
	if throttle == nil {
		throttle = ratelimit.NewIPThrottle(opts.RequestRate, opts.RequestBurst)
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = service.DefaultSessionTTL
	}

	api := &api{
		logger:        logger,
		isProd:        opts.IsProd,
		dbPing:        opts.DBPing,
		authSvc:       opts.Auth,
		commentSvc:    opts.Comments,
		moderationSvc: opts.Moderation,
		cookieCodec:   opts.CookieCodec,
		cookieSecure:  opts.CookieSecure,
		sessionTTL:    sessionTTL,
		trustProxy:    opts.TrustProxy,
		throttle:      throttle,
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	publicMux.Handle("GET /metrics", promhttp.Handler())

	if api.authSvc == nil {
		apiMux.HandleFunc("GET /v1/session", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
	} else {
		apiMux.HandleFunc("GET /v1/session", api.handleSession)
		apiMux.HandleFunc("POST /v1/auth/login", api.throttled(api.handleAuthLogin))
		apiMux.HandleFunc("POST /v1/auth/google", api.throttled(api.handleAuthLoginGoogle))
		apiMux.HandleFunc("POST /v1/auth/apple", api.throttled(api.handleAuthLoginApple))
		apiMux.HandleFunc("POST /v1/auth/logout", api.throttled(api.handleAuthLogout))
		apiMux.HandleFunc("GET /v1/auth/attempts", api.handleAuthAttempts)

		if api.commentSvc != nil {
			apiMux.HandleFunc("POST /v1/articles/{id}/comments", api.throttled(api.handleCommentsCreate))
			apiMux.HandleFunc("GET /v1/articles/{id}/comments", api.handleCommentsList)
		}

		if api.moderationSvc != nil {
			apiMux.HandleFunc("GET /v1/admin/comments", api.requireAdmin(api.handleAdminCommentsList))
			apiMux.HandleFunc("GET /v1/admin/comments/stats", api.requireAdmin(api.handleAdminCommentsStats))
			apiMux.HandleFunc("POST /v1/admin/comments/{id}/{action}", api.throttled(api.requireAdmin(api.requireCSRF(api.handleAdminCommentsModerate))))
			apiMux.HandleFunc("DELETE /v1/admin/comments/{id}", api.requireAdmin(api.requireCSRF(api.handleAdminCommentsDelete)))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = metrics.Middleware(h)
	h = RequestLogger(logger, opts.TrustProxy)(h)
	h = Recoverer(logger, opts.IsProd)(h)
	h = RequestID()(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc       *service.AuthService
	commentSvc    *service.CommentService
	moderationSvc *service.ModerationService
	cookieCodec   auth.CookieCodec
	cookieSecure  bool
	sessionTTL    time.Duration
	trustProxy    bool

	throttle *ratelimit.IPThrottle
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			a.logger.Warn("health check failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
