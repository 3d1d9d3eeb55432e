package cache

import (
	"context"
	"log/slog"
	"time"

	pkgredis "github.com/blogpulse/blogpulse/pkg/redis"
)

// Redis adapts the shared Redis client to the Store contract. Errors are
// logged and reported as misses so a Redis outage degrades to uncached
// answering instead of failing requests.
type Redis struct {
	client *pkgredis.Client
	logger *slog.Logger
}

// NewRedis wraps an existing Redis client.
func NewRedis(client *pkgredis.Client) *Redis {
	return &Redis{
		client: client,
		logger: slog.Default().With("component", "redis-cache"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			r.logger.Error("cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, []byte(value), ttl); err != nil {
		r.logger.Error("cache set failed", "key", key, "error", err)
	}
}
