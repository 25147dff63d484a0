package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// Config selects and parameterises the session backend.
type Config struct {
	Storage     string // memory, redis or postgres
	RedisURL    string
	PostgresDSN string
	TTL         time.Duration
}

// New builds the session store named by cfg.Storage. Storage "none" returns
// a nil store, which the API layer reports as sessions being disabled.
// Unknown values are an error rather than a silent fallback; a typo in
// config should not quietly make sessions volatile.
func New(ctx context.Context, cfg Config, log logger.StyledLogger) (ports.SessionStore, error) {
	switch cfg.Storage {
	case "none":
		log.Info("session storage: disabled")
		return nil, nil

	case "", "memory":
		log.Info("session storage: in-memory", "ttl", cfg.TTL)
		return NewMemoryStore(cfg.TTL), nil

	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		log.Info("session storage: redis", "addr", opts.Addr, "ttl", cfg.TTL)
		return NewRedisStore(client, cfg.TTL), nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("session storage: postgres")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown session storage %q", cfg.Storage)
	}
}
