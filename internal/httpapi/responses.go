package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`

	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps gate and store errors to responses. Anything
// unrecognised is an infrastructure failure and is never echoed.
func WriteDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var rl *domain.RateLimitError

	switch {
	case errors.As(err, &rl):
		secs := retryAfterSeconds(rl.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		msg := "too many attempts, please try again later"
		if rl.Kind == domain.ActionLogin {
			msg = "too many failed login attempts, please try again later"
		}
		WriteJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: apiError{
			Code:              "rate_limited",
			Message:           msg,
			RetryAfterSeconds: secs,
		}})
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: ve.Message(),
			Details: ve.Messages,
		}})
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrCSRF):
		WriteError(w, http.StatusForbidden, "csrf_failed", "security check failed, please reload the page and try again")
	case errors.Is(err, domain.ErrSessionHijack), errors.Is(err, domain.ErrSessionExpired):
		WriteError(w, http.StatusUnauthorized, "session_invalid", "session is no longer valid, please sign in again")
	case errors.Is(err, domain.ErrSpam):
		WriteError(w, http.StatusUnprocessableEntity, "content_rejected", "your comment contains disallowed content")
	case errors.Is(err, domain.ErrDuplicate):
		WriteError(w, http.StatusConflict, "duplicate_comment", "you already posted this comment")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	case errors.Is(err, auth.ErrProviderDisabled):
		WriteError(w, http.StatusNotImplemented, "provider_disabled", "sign-in provider not configured")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrInvalidStatus):
		WriteError(w, http.StatusBadRequest, "invalid_status", "invalid comment status")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again later")
	}
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
