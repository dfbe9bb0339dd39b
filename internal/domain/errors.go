package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrCSRF               = errors.New("csrf_failed")
	ErrSessionHijack      = errors.New("session_ip_changed")
	ErrSessionExpired     = errors.New("session_expired")
	ErrRateLimited        = errors.New("rate_limited")
	ErrSpam               = errors.New("spam")
	ErrDuplicate          = errors.New("duplicate_comment")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrValidation         = errors.New("validation")
)

// ValidationError carries every violated rule, in the order they were checked.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Messages, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message is the user-facing text: all violations joined into one line.
func (e *ValidationError) Message() string {
	return strings.Join(e.Messages, ", ")
}

func NewValidationError(messages ...string) error {
	return &ValidationError{Messages: messages}
}

type RateLimitError struct {
	Kind       ActionKind
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s (retry after %s)", e.Kind, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
