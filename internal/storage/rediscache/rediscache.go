// Package rediscache caches dashboard summaries in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/jersey-orders/internal/domain/stats"
)

const (
	keyPrefix   = "jersey:stats:"
	advancedKey = keyPrefix + "advanced"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 15 * time.Second

var _ stats.Cache = (*Cache)(nil)

// Cache implements stats.Cache. Entries expire after the TTL or when
// Invalidate is called.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New returns a Cache storing entries in client for ttl.
func New(client redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func summaryKey(p stats.Period) string {
	return keyPrefix + "summary:" + string(p)
}

// GetSummary returns the cached summary of the period.
func (c *Cache) GetSummary(ctx context.Context, p stats.Period) (*stats.Summary, bool, error) {
	var s stats.Summary
	ok, err := c.get(ctx, summaryKey(p), &s)
	if !ok || err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

// SetSummary caches s under its period.
func (c *Cache) SetSummary(ctx context.Context, s *stats.Summary) error {
	return c.set(ctx, summaryKey(s.Period), s)
}

// GetAdvanced returns the cached advanced summary.
func (c *Cache) GetAdvanced(ctx context.Context) (*stats.AdvancedSummary, bool, error) {
	var s stats.AdvancedSummary
	ok, err := c.get(ctx, advancedKey, &s)
	if !ok || err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

// SetAdvanced caches s.
func (c *Cache) SetAdvanced(ctx context.Context, s *stats.AdvancedSummary) error {
	return c.set(ctx, advancedKey, s)
}

// Invalidate deletes every summary key.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, keys()...).Err(); err != nil {
		return errors.Wrap(err, "delete summaries")
	}
	return nil
}

func keys() []string {
	out := make([]string, 0, len(stats.Periods)+1)
	for _, p := range stats.Periods {
		out = append(out, summaryKey(p))
	}
	return append(out, advancedKey)
}

func (c *Cache) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Drop the corrupted entry so the next read recomputes it.
		_ = c.client.Del(ctx, key)
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}
