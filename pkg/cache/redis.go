package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the real Cache implementation, backed by a go-redis client.
// Grounded on achetronic-adk-utils-go's session/redis package: a thin
// wrapper constructed once from a URL/options struct, logging failures
// rather than propagating them (the cache is optional infrastructure).
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis connects to addr (a redis:// URL) and verifies connectivity
// with a PING. Returns an error if the server is unreachable so the
// caller can fall back to NoOp — this is the one place the distinction
// between "no cache configured" and "cache configured but down" is
// still visible; after construction, callers only ever see the Cache
// interface.
func NewRedis(ctx context.Context, url string, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Redis{client: client, logger: logger}, nil
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) Available() bool { return true }

var _ Cache = (*Redis)(nil)

// New selects a Cache implementation based on url: a real Redis client
// if url is non-empty and reachable, NoOp otherwise. Connection failure
// degrades to NoOp with a logged warning rather than failing startup,
// matching spec.md §4.1's "cache is opaque-optional" contract.
func New(ctx context.Context, url string, logger *slog.Logger) Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		return NewNoOp()
	}
	r, err := NewRedis(ctx, url, logger)
	if err != nil {
		logger.Warn("cache unavailable, proceeding without it", "error", err)
		return NewNoOp()
	}
	return r
}
