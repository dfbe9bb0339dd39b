package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"Blogwebserver/internal/auth"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	accessNoteKey
)

const requestIDHeader = "X-Request-Id"

func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = newRequestID()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// accessNote collects what the handlers learned about a request so the
// access log line can carry it: the admin behind the session and whether the
// per-IP throttle turned the request away.
type accessNote struct {
	adminID   string
	throttled bool
}

func noteFrom(ctx context.Context) *accessNote {
	n, _ := ctx.Value(accessNoteKey).(*accessNote)
	return n
}

func noteAdmin(ctx context.Context, adminID string) {
	if n := noteFrom(ctx); n != nil {
		n.adminID = adminID
	}
}

func noteThrottled(ctx context.Context) {
	if n := noteFrom(ctx); n != nil {
		n.throttled = true
	}
}

// RequestLogger writes one line per request keyed by the client IP the gates
// use, so abuse in the logs lines up with rate-limit identifiers. Rejections
// that signal abuse (403, 429) log at warn, server failures at error.
func RequestLogger(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			note := &accessNote{}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), accessNoteKey, note)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.String("ip", auth.ClientIP(r, trustProxy)),
				slog.Int("bytes", rec.bytes),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if rid, ok := GetRequestID(r.Context()); ok {
				attrs = append(attrs, slog.String("request_id", rid))
			}
			if note.adminID != "" {
				attrs = append(attrs, slog.String("admin_id", note.adminID))
			}
			if note.throttled {
				attrs = append(attrs, slog.Bool("throttled", true))
			}
			logger.LogAttrs(r.Context(), accessLevel(rec.status), "http request", attrs...)
		})
	}
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Recoverer turns a handler panic into the generic internal_error body.
// Stacks are logged outside prod only.
func Recoverer(logger *slog.Logger, isProd bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				args := []any{"panic", p, "method", r.Method, "path", r.URL.Path}
				if rid, ok := GetRequestID(r.Context()); ok {
					args = append(args, "request_id", rid)
				}
				if !isProd {
					args = append(args, "stack", string(debug.Stack()))
				}
				logger.Error("handler panic", args...)
				WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UTC().Format("20060102T150405.000000000")
	}
	return hex.EncodeToString(b[:])
}
