package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"Blogwebserver/internal/adminui"
	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/config"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/email"
	"Blogwebserver/internal/httpapi"
	"Blogwebserver/internal/jobs"
	"Blogwebserver/internal/metrics"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store open failed", "err", err, "driver", cfg.StoreDriver())
		os.Exit(1)
	}
	defer st.close()

	limiter := ratelimit.NewLimiter(st.counters, map[domain.ActionKind]ratelimit.Policy{
		domain.ActionLogin:   cfg.LoginPolicy,
		domain.ActionComment: cfg.CommentPolicy,
	})

	var notifier service.CommentNotifier
	if cfg.NotificationsEnabled() {
		n := email.NewModeratorNotifier(cfg.SMTP, cfg.SMTPFrom, cfg.ModeratorEmail, logger)
		n.SetPublicURL(cfg.PublicURL)
		go n.Run(ctx)
		notifier = n
		logger.Info("moderator notifications enabled", "to", cfg.ModeratorEmail)
	}

	var verifier service.IdentityVerifier
	if cfg.GoogleClientID != "" || cfg.AppleServiceID != "" {
		verifier = auth.IDTokenVerifier{
			GoogleClientID: cfg.GoogleClientID,
			AppleServiceID: cfg.AppleServiceID,
		}
	}

	authSvc := &service.AuthService{
		Admins:     st.admins,
		Sessions:   st.sessions,
		Limiter:    limiter,
		Verifier:   verifier,
		Logger:     logger,
		SessionTTL: cfg.SessionTTL,
	}
	commentSvc := &service.CommentService{
		Comments: st.comments,
		Limiter:  limiter,
		Notifier: notifier,
		Logger:   logger,
	}
	moderationSvc := &service.ModerationService{
		Comments: st.comments,
		Logger:   logger,
	}

	if cfg.AdminBootstrapPassword != "" {
		created, err := authSvc.BootstrapAdmin(ctx, cfg.AdminBootstrapUsername, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword)
		if err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}
		if created {
			logger.Info("admin bootstrap: created admin", "username", cfg.AdminBootstrapUsername)
		}
	}

	prometheus.MustRegister(metrics.NewCommentQueueCollector(moderationSvc.Stats, logger))

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Register(cfg.SweepSchedule, &jobs.SweepCountersJob{Limiter: limiter, Logger: logger}); err != nil {
		logger.Error("schedule job failed", "err", err)
		os.Exit(1)
	}
	if err := scheduler.Register(cfg.SweepSchedule, &jobs.PurgeSessionsJob{Sessions: st.sessions, Logger: logger}); err != nil {
		logger.Error("schedule job failed", "err", err)
		os.Exit(1)
	}
	scheduler.Start()

	codec := auth.NewCookieCodec([]byte(cfg.CookieSecret))
	throttle := ratelimit.NewIPThrottle(cfg.RequestRate, cfg.RequestBurst)

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		DBPing:       st.dbPing,
		Auth:         authSvc,
		Comments:     commentSvc,
		Moderation:   moderationSvc,
		CookieCodec:  codec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
		TrustProxy:   cfg.TrustProxy,
		Throttle:     throttle,
	})

	adminRouter := adminui.New(adminui.Opts{
		Logger:       logger,
		Auth:         authSvc,
		Moderation:   moderationSvc,
		CookieCodec:  codec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
		TrustProxy:   cfg.TrustProxy,
		Throttle:     throttle,
	})

	root := http.NewServeMux()
	root.Handle("/", apiRouter)
	root.Handle("/admin", adminRouter)
	root.Handle("/admin/", adminRouter)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "store", cfg.StoreDriver())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		scheduler.Stop(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			scheduler.Stop(context.Background())
			st.close()
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
