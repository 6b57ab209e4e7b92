/**
 * @description
 * This package implements the caching layer for the collections-service: a
 * Redis-backed key-value store with TTLs, wildcard invalidation, and a
 * transparent in-process fallback used whenever Redis is unreachable. Cache
 * failures are absorbed here and never turn a read or write into a
 * user-visible failure.
 *
 * Connectivity is not tracked as shared mutable state. Every call attempts
 * Redis and degrades on error, and lookups report a tagged status
 * (Hit | Miss | Unavailable) so callers never race a background-updated flag.
 *
 * @dependencies
 * - context, log, strings, time: Standard Go libraries.
 * - github.com/redis/go-redis/v9: The Redis client library.
 */

package cache

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status tags the outcome of a cache lookup.
type Status int

const (
	// Miss means the key was absent (or expired) in whichever store answered.
	Miss Status = iota
	// Hit means a value was found; Lookup.Value carries it.
	Hit
	// Unavailable means Redis failed and the fallback had nothing. Callers
	// treat this like a miss; the distinction exists for logging.
	Unavailable
)

// Lookup is the tagged result of a Get.
type Lookup struct {
	Status Status
	Value  []byte
}

// Client is the cache facade. A nil Redis client is valid; all traffic then
// goes to the in-process fallback, which still honors TTLs.
type Client struct {
	redis    redis.UniversalClient
	fallback *memoryStore
}

// New creates a cache client. Pass a nil redis client to run memory-only.
func New(rdb redis.UniversalClient) *Client {
	return &Client{
		redis:    rdb,
		fallback: newMemoryStore(),
	}
}

// Get looks up a key, preferring Redis and consulting the fallback when Redis
// is unreachable.
func (c *Client) Get(ctx context.Context, key string) Lookup {
	if c.redis != nil {
		value, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			return Lookup{Status: Hit, Value: value}
		}
		if err == redis.Nil {
			return Lookup{Status: Miss}
		}
		log.Printf("level=warn component=cache op=get msg=\"redis unavailable; using fallback\" key=%s err=%v", key, err)
	}

	if value, ok := c.fallback.get(key); ok {
		return Lookup{Status: Hit, Value: value}
	}
	if c.redis == nil {
		return Lookup{Status: Miss}
	}
	return Lookup{Status: Unavailable}
}

// Set stores a value with a TTL. On Redis failure the value lands in the
// fallback so subsequent degraded reads can still be served.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c.redis != nil {
		err := c.redis.Set(ctx, key, value, ttl).Err()
		if err == nil {
			return
		}
		log.Printf("level=warn component=cache op=set msg=\"redis unavailable; using fallback\" key=%s err=%v", key, err)
	}
	c.fallback.set(key, value, ttl)
}

// Delete removes exact keys from both stores.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	for _, key := range keys {
		c.fallback.delete(key)
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			log.Printf("level=warn component=cache op=delete msg=\"redis delete failed\" keys=%d err=%v", len(keys), err)
		}
	}
}

// DeletePattern removes every key matching a trailing-wildcard pattern
// (e.g. "accounts:*") from both stores. Redis keys are discovered with SCAN;
// the sweep is O(n) in cache size, which is the accepted tradeoff for
// correctness over efficiency.
func (c *Client) DeletePattern(ctx context.Context, pattern string) {
	c.fallback.deletePattern(pattern)

	if c.redis == nil {
		return
	}

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			log.Printf("level=warn component=cache op=delete_pattern msg=\"redis scan failed\" pattern=%s err=%v", pattern, err)
			return
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				log.Printf("level=warn component=cache op=delete_pattern msg=\"redis delete failed\" pattern=%s err=%v", pattern, err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// PurgeExpired drops expired fallback entries. Scheduled periodically from
// main; Redis expires its own keys.
func (c *Client) PurgeExpired() int {
	return c.fallback.purgeExpired()
}

func matchesPattern(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return pattern == key
}
