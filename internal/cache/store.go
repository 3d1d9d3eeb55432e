// Package cache holds the QA response cache and the per-session query log.
// The cache is a key-value store (in-process or Redis) with a singleflight
// overlay so concurrent identical questions trigger one computation.
package cache

import (
	"context"
	"time"
)

// Store is the key-value layer under the query cache. Get reports a miss for
// absent or expired keys; Set failures are absorbed by the caller, a cache
// must never take the request down with it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}
