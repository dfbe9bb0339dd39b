package httpapi

import (
	"net/http"
	"time"
)

func (a *api) throttled(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.throttle != nil && !a.throttle.Allow(a.clientIP(r), time.Now()) {
			noteThrottled(r.Context())
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}
