package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"Blogwebserver/internal/email"
	"Blogwebserver/internal/ratelimit"
)

type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	CookieSecret string
	SessionTTL   time.Duration
	LogLevel     string
	// TrustProxy honours X-Forwarded-For for client IPs.
	TrustProxy bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginPolicy   ratelimit.Policy
	CommentPolicy ratelimit.Policy
	SweepSchedule string
	// RequestRate is the per-IP token refill rate for POST /v1/* in req/s.
	RequestRate  float64
	RequestBurst int

	GoogleClientID string
	AppleServiceID string

	SMTP           email.SMTPSettings
	SMTPFrom       string
	ModeratorEmail string

	AdminBootstrapEmail    string
	AdminBootstrapUsername string
	AdminBootstrapPassword string
}

// Load reads .env (if present) into the process environment, then the
// APP_* variables.
func Load() (Config, error) {
	path := os.Getenv("APP_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnvFile(path, os.Setenv, os.Getenv); err != nil {
		return Config{}, err
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:            getenv("APP_ENV"),
		Addr:           getenv("APP_ADDR"),
		DBDSN:          strings.TrimSpace(getenv("APP_DB_DSN")),
		LogLevel:       getenv("APP_LOG_LEVEL"),
		CookieSecret:   getenv("APP_COOKIE_SECRET"),
		RedisAddr:      strings.TrimSpace(getenv("APP_REDIS_ADDR")),
		RedisPassword:  getenv("APP_REDIS_PASSWORD"),
		SweepSchedule:  strings.TrimSpace(getenv("APP_SWEEP_SCHEDULE")),
		GoogleClientID: strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		AppleServiceID: strings.TrimSpace(getenv("APP_APPLE_SERVICE_ID")),
		SMTPFrom:       strings.TrimSpace(getenv("APP_SMTP_FROM")),
		ModeratorEmail: strings.TrimSpace(strings.ToLower(getenv("APP_MODERATOR_EMAIL"))),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	switch strings.ToLower(strings.TrimSpace(getenv("APP_TRUST_PROXY"))) {
	case "", "0", "false", "no":
	case "1", "true", "yes":
		cfg.TrustProxy = true
	default:
		return Config{}, errors.New("APP_TRUST_PROXY: must be true or false")
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 15m"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	if cfg.SessionTTL, err = positiveDuration(getenv, "APP_SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = nonNegativeInt(getenv, "APP_REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	if cfg.LoginPolicy.MaxAttempts, err = positiveInt(getenv, "APP_LOGIN_MAX_ATTEMPTS", ratelimit.LoginPolicy.MaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.LoginPolicy.Window, err = positiveDuration(getenv, "APP_LOGIN_WINDOW", ratelimit.LoginPolicy.Window); err != nil {
		return Config{}, err
	}
	if cfg.CommentPolicy.MaxAttempts, err = positiveInt(getenv, "APP_COMMENT_MAX_ATTEMPTS", ratelimit.CommentPolicy.MaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.CommentPolicy.Window, err = positiveDuration(getenv, "APP_COMMENT_WINDOW", ratelimit.CommentPolicy.Window); err != nil {
		return Config{}, err
	}

	if cfg.RequestRate, err = positiveFloat(getenv, "APP_REQUEST_RATE", 2); err != nil {
		return Config{}, err
	}
	if cfg.RequestBurst, err = positiveInt(getenv, "APP_REQUEST_BURST", 10); err != nil {
		return Config{}, err
	}

	cfg.SMTP = email.SMTPSettings{
		Host:     strings.TrimSpace(getenv("APP_SMTP_HOST")),
		Username: getenv("APP_SMTP_USERNAME"),
		Password: getenv("APP_SMTP_PASSWORD"),
		TLSMode:  strings.ToLower(strings.TrimSpace(getenv("APP_SMTP_TLS_MODE"))),
	}
	if cfg.SMTP.Port, err = positiveInt(getenv, "APP_SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	switch cfg.SMTP.TLSMode {
	case "", "tls", "starttls", "none":
	default:
		return Config{}, errors.New("APP_SMTP_TLS_MODE: must be one of tls, starttls, none")
	}
	if cfg.SMTP.Host != "" && (cfg.SMTPFrom == "" || cfg.ModeratorEmail == "") {
		return Config{}, errors.New("APP_SMTP_FROM and APP_MODERATOR_EMAIL: required when APP_SMTP_HOST is set")
	}

	cfg.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_ADMIN_BOOTSTRAP_EMAIL")))
	cfg.AdminBootstrapUsername = strings.TrimSpace(getenv("APP_ADMIN_BOOTSTRAP_USERNAME"))
	cfg.AdminBootstrapPassword = getenv("APP_ADMIN_BOOTSTRAP_PASSWORD")

	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapEmail == "" {
		return Config{}, errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapUsername == "" {
		cfg.AdminBootstrapUsername = "admin"
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// StoreDriver names the backend selected by APP_DB_DSN: "postgres",
// "sqlite" (sqlite:<path>) or "memory" when unset.
func (c Config) StoreDriver() string {
	switch {
	case c.DBDSN == "":
		return "memory"
	case strings.HasPrefix(c.DBDSN, "sqlite:"):
		return "sqlite"
	default:
		return "postgres"
	}
}

func (c Config) NotificationsEnabled() bool {
	return c.SMTP.Configured() && c.ModeratorEmail != ""
}

func positiveDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	n, err := nonNegativeInt(getenv, key, def)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return n, nil
}

func nonNegativeInt(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must be >= 0", key)
	}
	return n, nil
}

func positiveFloat(getenv func(string) string, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return f, nil
}
