package main

import (
	"context"
	"fmt"
	"log/slog"

	"Blogwebserver/internal/config"
	"Blogwebserver/internal/ratelimit"
	"Blogwebserver/internal/service"
	"Blogwebserver/internal/store/memory"
	"Blogwebserver/internal/store/postgres"
	"Blogwebserver/internal/store/redis"
	"Blogwebserver/internal/store/sqlite"
)

type stores struct {
	admins   service.AdminsStore
	sessions service.SessionsStore
	comments service.CommentsStore
	counters ratelimit.Store
	dbPing   func(context.Context) error
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks the backend from APP_DB_DSN. Redis, when configured,
// takes over the rate-limit counters regardless of the database.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.StoreDriver() {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			s.close()
			return nil, err
		}
		s.admins = postgres.NewAdminsStore(pool)
		s.sessions = postgres.NewSessionsStore(pool)
		s.comments = postgres.NewCommentsStore(pool)
		s.counters = postgres.NewCountersStore(pool)
		s.dbPing = pool.Ping
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		if err := sqlite.Migrate(ctx, db); err != nil {
			s.close()
			return nil, err
		}
		s.admins = sqlite.NewAdminsStore(db)
		s.sessions = memory.NewSessionsStore()
		s.comments = sqlite.NewCommentsStore(db)
		s.counters = sqlite.NewCountersStore(db)
		s.dbPing = db.PingContext
		logger.Info("sqlite store: sessions are kept in memory")
	default:
		s.admins = memory.NewAdminsStore()
		s.sessions = memory.NewSessionsStore()
		s.comments = memory.NewCommentsStore()
		s.counters = ratelimit.NewMemoryStore()
		logger.Warn("no APP_DB_DSN set: using in-memory stores, data is lost on restart")
	}

	if cfg.RedisAddr != "" {
		client, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.counters = redis.NewCountersStore(client)
		logger.Info("rate limit counters stored in redis", "addr", cfg.RedisAddr)
	}

	return s, nil
}
