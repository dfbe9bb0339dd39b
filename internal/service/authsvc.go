package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"Blogwebserver/internal/auth"
	"Blogwebserver/internal/domain"
	"Blogwebserver/internal/metrics"
	"Blogwebserver/internal/ratelimit"
)

const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultIdleTimeout   = 60 * time.Minute
	DefaultMaxSessionAge = 8 * time.Hour
)

const (
	loginSuccess = "success"
	loginInvalid = "invalid"
	loginLocked  = "locked"
	loginError   = "error"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, provider auth.Provider, token string) (auth.ExternalIdentity, error)
}

type AuthService struct {
	Admins   AdminsStore
	Sessions SessionsStore
	Limiter  *ratelimit.Limiter
	Verifier IdentityVerifier
	Logger   *slog.Logger

	// SessionTTL bounds anonymous sessions; signed-in sessions are bounded by
	// MaxSessionAge and IdleTimeout instead.
	SessionTTL    time.Duration
	IdleTimeout   time.Duration
	MaxSessionAge time.Duration
	Now           func() time.Time
}

type LoginInput struct {
	SessionID string
	CSRFToken string
	Username  string
	Password  string
	IP        string
}

type ExternalLoginInput struct {
	SessionID string
	CSRFToken string
	IDToken   string
	IP        string
}

// LoginIdentifier is the rate-limit key for password logins.
func LoginIdentifier(username, ip string) string {
	return strings.TrimSpace(username) + "_" + ip
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) policy() ratelimit.Policy {
	return s.Limiter.Policy(domain.ActionLogin)
}

func (s *AuthService) CanAttemptLogin(ctx context.Context, username, ip string) (bool, error) {
	return s.Limiter.Check(ctx, domain.ActionLogin, LoginIdentifier(username, ip), s.policy())
}

func (s *AuthService) RemainingLoginAttempts(ctx context.Context, username, ip string) (int, error) {
	return s.Limiter.Remaining(ctx, domain.ActionLogin, LoginIdentifier(username, ip), s.policy())
}

func (s *AuthService) LoginRetryAfter(ctx context.Context, username, ip string) (time.Duration, error) {
	return s.Limiter.RetryAfter(ctx, domain.ActionLogin, LoginIdentifier(username, ip), s.policy())
}

// Authenticate checks the rate limit before touching credentials. Unknown
// usernames and wrong passwords are indistinguishable to the caller and both
// count as a failed attempt.
func (s *AuthService) Authenticate(ctx context.Context, username, password, ip string) (domain.Admin, error) {
	username = strings.TrimSpace(username)
	id := LoginIdentifier(username, ip)
	log := s.logger().With("username", username, "ip", ip)

	if err := s.checkLoginRate(ctx, id); err != nil {
		return domain.Admin{}, err
	}

	a, err := s.Admins.FindAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Keep timing close to the known-user path.
			_, _ = auth.VerifyPassword(dummyHash(), password)
			return domain.Admin{}, s.failLogin(ctx, log, id)
		}
		return domain.Admin{}, s.loginFailure(log, "find admin", err)
	}

	ok, err := auth.VerifyPassword(a.PasswordHash, password)
	if err != nil {
		return domain.Admin{}, s.loginFailure(log, "verify password", err)
	}
	if !ok {
		return domain.Admin{}, s.failLogin(ctx, log, id)
	}

	if err := s.succeedLogin(ctx, log, id, a.Admin); err != nil {
		return domain.Admin{}, err
	}

	if auth.NeedsRehash(a.PasswordHash) {
		if h, err := auth.HashPassword(password); err != nil {
			log.Error("rehash password failed", "err", err)
		} else if err := s.Admins.UpdatePasswordHash(ctx, a.ID, h); err != nil {
			log.Error("store rehashed password failed", "err", err)
		}
	}
	return a.Admin, nil
}

// Login authenticates and, on success, turns the caller's session into a
// signed-in one under a new ID.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (domain.Admin, domain.Session, error) {
	sess, err := s.requireCSRF(ctx, in.SessionID, in.CSRFToken)
	if err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	a, err := s.Authenticate(ctx, in.Username, in.Password, in.IP)
	if err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	sess, err = s.establish(ctx, sess, a, in.IP)
	if err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	return a, sess, nil
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, in ExternalLoginInput) (domain.Admin, domain.Session, error) {
	return s.loginWithProvider(ctx, auth.ProviderGoogle, in)
}

func (s *AuthService) LoginWithApple(ctx context.Context, in ExternalLoginInput) (domain.Admin, domain.Session, error) {
	return s.loginWithProvider(ctx, auth.ProviderApple, in)
}

func (s *AuthService) loginWithProvider(ctx context.Context, provider auth.Provider, in ExternalLoginInput) (domain.Admin, domain.Session, error) {
	sess, err := s.requireCSRF(ctx, in.SessionID, in.CSRFToken)
	if err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	if s.Verifier == nil {
		return domain.Admin{}, domain.Session{}, auth.ErrProviderDisabled
	}

	id := string(provider) + "_" + in.IP
	log := s.logger().With("provider", provider, "ip", in.IP)
	if err := s.checkLoginRate(ctx, id); err != nil {
		return domain.Admin{}, domain.Session{}, err
	}

	ident, err := s.Verifier.Verify(ctx, provider, in.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrProviderDisabled) {
			return domain.Admin{}, domain.Session{}, err
		}
		log.Warn("id token rejected", "err", err)
		return domain.Admin{}, domain.Session{}, s.failLogin(ctx, log, id)
	}

	a, err := s.Admins.FindAdminByEmail(ctx, ident.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Admin{}, domain.Session{}, s.failLogin(ctx, log, id)
		}
		return domain.Admin{}, domain.Session{}, s.loginFailure(log, "find admin", err)
	}

	if err := s.succeedLogin(ctx, log, id, a.Admin); err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	sess, err = s.establish(ctx, sess, a.Admin, in.IP)
	if err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	return a.Admin, sess, nil
}

func (s *AuthService) checkLoginRate(ctx context.Context, id string) error {
	p := s.policy()
	ok, err := s.Limiter.Check(ctx, domain.ActionLogin, id, p)
	if err != nil {
		return s.loginFailure(s.logger(), "rate check", err)
	}
	if ok {
		return nil
	}
	wait, err := s.Limiter.RetryAfter(ctx, domain.ActionLogin, id, p)
	if err != nil {
		return s.loginFailure(s.logger(), "rate check", err)
	}
	s.logger().Warn("login rejected", "stage", metrics.StageRate, "identifier", id, "retry_after", wait)
	metrics.RecordGate(string(domain.ActionLogin), metrics.StageRate, metrics.OutcomeRejected)
	metrics.RecordLogin(loginLocked)
	return &domain.RateLimitError{Kind: domain.ActionLogin, RetryAfter: wait}
}

func (s *AuthService) failLogin(ctx context.Context, log *slog.Logger, id string) error {
	if err := s.Limiter.Increment(ctx, domain.ActionLogin, id, s.policy()); err != nil {
		return s.loginFailure(log, "rate increment", err)
	}
	log.Info("login failed")
	metrics.RecordGate(string(domain.ActionLogin), metrics.StageValidate, metrics.OutcomeRejected)
	metrics.RecordLogin(loginInvalid)
	return domain.ErrInvalidCredentials
}

func (s *AuthService) succeedLogin(ctx context.Context, log *slog.Logger, id string, a domain.Admin) error {
	if err := s.Limiter.Reset(ctx, domain.ActionLogin, id); err != nil {
		return s.loginFailure(log, "rate reset", err)
	}
	if err := s.Admins.UpdateLastLogin(ctx, a.ID, s.now()); err != nil {
		log.Error("update last login failed", "err", err, "admin_id", a.ID)
	}
	log.Info("login succeeded", "admin_id", a.ID)
	metrics.RecordGate(string(domain.ActionLogin), metrics.StagePersist, metrics.OutcomeAccepted)
	metrics.RecordLogin(loginSuccess)
	return nil
}

func (s *AuthService) loginFailure(log *slog.Logger, step string, err error) error {
	log.Error("login gate failed", "step", step, "err", err)
	metrics.RecordGate(string(domain.ActionLogin), metrics.StageError, metrics.OutcomeFailed)
	metrics.RecordLogin(loginError)
	return fmt.Errorf("login %s: %w", step, err)
}

func (s *AuthService) requireCSRF(ctx context.Context, sessionID, token string) (domain.Session, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if !auth.ValidCSRFToken(sess.CSRFToken, token) {
		s.logger().Warn("login rejected", "stage", metrics.StageCSRF)
		metrics.RecordGate(string(domain.ActionLogin), metrics.StageCSRF, metrics.OutcomeRejected)
		return domain.Session{}, domain.ErrCSRF
	}
	return sess, nil
}

// establish moves sess to a new ID bound to the admin and the login IP.
func (s *AuthService) establish(ctx context.Context, sess domain.Session, a domain.Admin, ip string) (domain.Session, error) {
	newID, err := s.Sessions.RegenerateSessionID(ctx, sess.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("regenerate session: %w", err)
	}
	token, err := auth.NewCSRFToken()
	if err != nil {
		return domain.Session{}, err
	}

	now := s.now()
	sess.ID = newID
	sess.AdminID = a.ID
	sess.LoginIP = ip
	sess.CSRFToken = token
	sess.CreatedAt = now
	sess.LastSeenAt = now
	sess.ExpiresAt = now.Add(s.maxSessionAge())
	if err := s.Sessions.UpdateSession(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// StartSession returns the caller's live session, or a fresh anonymous one
// carrying a CSRF token.
func (s *AuthService) StartSession(ctx context.Context, sessionID string) (domain.Session, bool, error) {
	if sessionID != "" {
		sess, err := s.Sessions.GetSession(ctx, sessionID)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, false, err
		}
	}

	token, err := auth.NewCSRFToken()
	if err != nil {
		return domain.Session{}, false, err
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := s.now()
	sess, err := s.Sessions.CreateSession(ctx, domain.Session{
		CSRFToken:  token,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ttl),
	})
	if err != nil {
		return domain.Session{}, false, err
	}
	return sess, true, nil
}

// LookupSession maps a missing or expired session to ErrUnauthorized.
func (s *AuthService) LookupSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrUnauthorized
		}
		return domain.Session{}, err
	}
	return sess, nil
}

// SessionAdmin resolves a signed-in session. A request from an IP other than
// the one that logged in destroys the session.
func (s *AuthService) SessionAdmin(ctx context.Context, sessionID, ip string) (domain.Admin, domain.Session, error) {
	sess, err := s.LookupSession(ctx, sessionID)
	if err != nil {
		return domain.Admin{}, domain.Session{}, err
	}
	if !sess.Authenticated() {
		return domain.Admin{}, domain.Session{}, domain.ErrUnauthorized
	}

	if sess.LoginIP != ip {
		s.logger().Warn("session ip changed", "admin_id", sess.AdminID, "login_ip", sess.LoginIP, "ip", ip)
		s.destroy(ctx, sess.ID)
		return domain.Admin{}, domain.Session{}, domain.ErrSessionHijack
	}

	now := s.now()
	if now.Sub(sess.LastSeenAt) > s.idleTimeout() || now.Sub(sess.CreatedAt) > s.maxSessionAge() {
		s.destroy(ctx, sess.ID)
		return domain.Admin{}, domain.Session{}, domain.ErrSessionExpired
	}

	a, err := s.Admins.GetAdminByID(ctx, sess.AdminID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.destroy(ctx, sess.ID)
			return domain.Admin{}, domain.Session{}, domain.ErrUnauthorized
		}
		return domain.Admin{}, domain.Session{}, err
	}

	sess.LastSeenAt = now
	if err := s.Sessions.UpdateSession(ctx, sess); err != nil {
		return domain.Admin{}, domain.Session{}, fmt.Errorf("touch session: %w", err)
	}
	return a, sess, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.Sessions.DestroySession(ctx, sessionID)
}

// BootstrapAdmin creates the first admin. It does nothing once any admin
// exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, email, password string) (bool, error) {
	n, err := s.Admins.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return false, domain.NewValidationError("username and email are required")
	}
	if msgs := auth.ValidatePasswordStrength(password); len(msgs) > 0 {
		return false, domain.NewValidationError(msgs...)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	a, err := s.Admins.CreateAdmin(ctx, username, email, hash)
	if err != nil {
		return false, err
	}
	s.logger().Info("bootstrap admin created", "admin_id", a.ID, "username", a.Username)
	return true, nil
}

func (s *AuthService) destroy(ctx context.Context, id string) {
	if err := s.Sessions.DestroySession(ctx, id); err != nil {
		s.logger().Error("destroy session failed", "err", err)
	}
}

func (s *AuthService) idleTimeout() time.Duration {
	if s.IdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return s.IdleTimeout
}

func (s *AuthService) maxSessionAge() time.Duration {
	if s.MaxSessionAge <= 0 {
		return DefaultMaxSessionAge
	}
	return s.MaxSessionAge
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = auth.HashPassword("not-a-real-password")
	})
	return dummy
}
