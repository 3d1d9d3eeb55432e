package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "qa:"

// QueryCache caches QA answers keyed by normalized question and retrieval
// depth. Concurrent identical questions are collapsed to one computation;
// failed computations are never cached.
type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a QueryCache over the given store.
func New(store Store, ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns a cached answer for the question at retrieval depth k.
func (c *QueryCache) Get(ctx context.Context, question string, k int) (*blog.Answer, bool) {
	key := buildKey(question, k)
	data, ok := c.store.Get(ctx, key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	var answer blog.Answer
	if err := json.Unmarshal([]byte(data), &answer); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &answer, true
}

// Set stores an answer. Encoding failures are logged and dropped.
func (c *QueryCache) Set(ctx context.Context, question string, k int, answer *blog.Answer) {
	key := buildKey(question, k)
	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	c.store.Set(ctx, key, string(data), c.ttl)
}

// flightResult carries the answer out of a singleflight computation along
// with whether the inner double-check found it already cached.
type flightResult struct {
	answer    *blog.Answer
	fromCache bool
}

// GetOrCompute returns the cached answer or computes it once, even when
// called concurrently with the same question. The second return value
// reports whether the answer was served without a fresh computation for
// this caller: a cache hit, or a result shared with an in-flight
// computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	question string,
	k int,
	computeFn func() (*blog.Answer, error),
) (*blog.Answer, bool, error) {
	if answer, ok := c.Get(ctx, question, k); ok {
		return answer, true, nil
	}
	key := buildKey(question, k)
	val, err, shared := c.group.Do(key, func() (interface{}, error) {
		if answer, ok := c.Get(ctx, question, k); ok {
			return flightResult{answer: answer, fromCache: true}, nil
		}
		answer, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, question, k, answer)
		return flightResult{answer: answer}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := val.(flightResult)
	return res.answer, res.fromCache || shared, nil
}

// Stats returns the hit and miss counters.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(question string, k int) string {
	raw := fmt.Sprintf("%s:k=%d", normalizeQuestion(question), k)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuestion lowercases, trims, and collapses runs of whitespace so
// cosmetic variants of a question share a cache entry.
func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}
