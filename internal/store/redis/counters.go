// Package redis stores rate-limit counters in Redis so every server instance
// shares one view of an identifier's attempts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"Blogwebserver/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "blog:ratelimit:"

// expiryGrace is added to the window when setting key TTLs, so Redis drops a
// counter about an hour after its window closed.
const expiryGrace = time.Hour

type Config struct {
	Addr     string
	Password string
	DB       int
}

func Open(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// incrementScript restarts a missing or stale window at now, otherwise bumps
// attempts. Times are unix milliseconds.
var incrementScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local start = tonumber(redis.call('HGET', KEYS[1], 'window_start') or '-1')
if start < 0 or now - start > window then
	redis.call('HSET', KEYS[1], 'attempts', 1, 'window_start', ARGV[1])
else
	redis.call('HINCRBY', KEYS[1], 'attempts', 1)
end
redis.call('PEXPIRE', KEYS[1], ttl)
return redis.call('HMGET', KEYS[1], 'attempts', 'window_start')
`)

type CountersStore struct {
	client *goredis.Client
	Now    func() time.Time
}

func NewCountersStore(client *goredis.Client) *CountersStore {
	return &CountersStore{client: client}
}

func (s *CountersStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func counterKey(kind domain.ActionKind, identifier string) string {
	return keyPrefix + string(kind) + ":" + identifier
}

func (s *CountersStore) Get(ctx context.Context, kind domain.ActionKind, identifier string) (domain.Counter, bool, error) {
	vals, err := s.client.HMGet(ctx, counterKey(kind, identifier), "attempts", "window_start").Result()
	if err != nil {
		return domain.Counter{}, false, fmt.Errorf("redis get counter: %w", err)
	}
	if vals[0] == nil || vals[1] == nil {
		return domain.Counter{}, false, nil
	}
	c, err := parseCounter(kind, identifier, vals)
	if err != nil {
		return domain.Counter{}, false, err
	}
	return c, true, nil
}

func (s *CountersStore) Increment(ctx context.Context, kind domain.ActionKind, identifier string, window time.Duration) (domain.Counter, error) {
	now := s.now().UnixMilli()
	ttl := (window + expiryGrace).Milliseconds()

	res, err := incrementScript.Run(ctx, s.client, []string{counterKey(kind, identifier)}, now, window.Milliseconds(), ttl).Slice()
	if err != nil {
		return domain.Counter{}, fmt.Errorf("redis increment counter: %w", err)
	}
	return parseCounter(kind, identifier, res)
}

func (s *CountersStore) Reset(ctx context.Context, kind domain.ActionKind, identifier string) error {
	if err := s.client.Del(ctx, counterKey(kind, identifier)).Err(); err != nil {
		return fmt.Errorf("redis reset counter: %w", err)
	}
	return nil
}

// SweepExpired is a no-op: key TTLs already expire counters.
func (s *CountersStore) SweepExpired(context.Context, domain.ActionKind, time.Duration) (int64, error) {
	return 0, nil
}

func parseCounter(kind domain.ActionKind, identifier string, vals []any) (domain.Counter, error) {
	if len(vals) != 2 {
		return domain.Counter{}, fmt.Errorf("redis counter: unexpected reply length %d", len(vals))
	}
	attempts, err := toInt64(vals[0])
	if err != nil {
		return domain.Counter{}, fmt.Errorf("redis counter attempts: %w", err)
	}
	startMS, err := toInt64(vals[1])
	if err != nil {
		return domain.Counter{}, fmt.Errorf("redis counter window_start: %w", err)
	}
	return domain.Counter{
		Kind:        kind,
		Identifier:  identifier,
		Attempts:    int(attempts),
		WindowStart: time.UnixMilli(startMS).UTC(),
	}, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseInt(x, 10, 64)
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
