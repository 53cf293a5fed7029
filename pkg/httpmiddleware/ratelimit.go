package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitRule is one rate limit bucket. A request matches when its method
// equals Method (any method when empty) and its path starts with Prefix.
type RateLimitRule struct {
	Name   string
	Method string
	Prefix string
	Max    int
	Window time.Duration
}

func (r RateLimitRule) matches(req *http.Request) bool {
	if r.Method != "" && r.Method != req.Method {
		return false
	}
	return strings.HasPrefix(req.URL.Path, r.Prefix)
}

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Rules are tried in order; the first match decides the bucket.
	Rules []RateLimitRule
	// Default applies when no rule matches. A zero Max disables it.
	Default RateLimitRule
	// Exempt paths are never limited.
	Exempt []string
	// KeyFunc identifies the client. Defaults to ClientKey().
	KeyFunc func(*http.Request) string
}

// counter is a sliding window approximation: the previous window's count
// weighted by how much of it still overlaps the sliding window.
type counter struct {
	start time.Time
	prev  int
	curr  int
}

func (c *counter) advance(now time.Time, window time.Duration) {
	switch elapsed := now.Sub(c.start); {
	case elapsed >= 2*window:
		c.prev, c.curr = 0, 0
		c.start = now.Truncate(window)
	case elapsed >= window:
		c.prev, c.curr = c.curr, 0
		c.start = c.start.Add(window)
	}
}

func (c *counter) estimate(now time.Time, window time.Duration) float64 {
	overlap := 1 - float64(now.Sub(c.start))/float64(window)
	return float64(c.prev)*max(overlap, 0) + float64(c.curr)
}

// bucket holds the counters of one rule.
type bucket struct {
	rule RateLimitRule

	mu       sync.Mutex
	counters map[string]*counter
}

func newBucket(rule RateLimitRule) *bucket {
	return &bucket{rule: rule, counters: make(map[string]*counter)}
}

// take records a request by key unless it would exceed the limit.
func (b *bucket) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, found := b.counters[key]
	if !found {
		c = &counter{start: now.Truncate(b.rule.Window)}
		b.counters[key] = c
	}
	c.advance(now, b.rule.Window)

	used := c.estimate(now, b.rule.Window)
	resetAt = c.start.Add(b.rule.Window)
	if used >= float64(b.rule.Max) {
		return 0, resetAt, false
	}
	c.curr++
	return max(b.rule.Max-int(math.Ceil(used+1)), 0), resetAt, true
}

// evict drops counters idle for two windows.
func (b *bucket) evict(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, c := range b.counters {
		if now.Sub(c.start) >= 2*b.rule.Window {
			delete(b.counters, key)
		}
	}
}

type rateLimiter struct {
	buckets  []*bucket
	fallback *bucket
	exempt   map[string]struct{}
	key      func(*http.Request) string
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		exempt: make(map[string]struct{}, len(cfg.Exempt)),
		key:    cfg.KeyFunc,
	}
	if rl.key == nil {
		rl.key = ClientKey()
	}
	for _, r := range cfg.Rules {
		if r.Max > 0 && r.Window > 0 {
			rl.buckets = append(rl.buckets, newBucket(r))
		}
	}
	if cfg.Default.Max > 0 && cfg.Default.Window > 0 {
		rl.fallback = newBucket(cfg.Default)
	}
	for _, p := range cfg.Exempt {
		rl.exempt[p] = struct{}{}
	}
	return rl
}

// bucketFor returns the bucket limiting r, or nil when r is not limited.
func (rl *rateLimiter) bucketFor(r *http.Request) *bucket {
	if _, ok := rl.exempt[r.URL.Path]; ok {
		return nil
	}
	for _, b := range rl.buckets {
		if b.rule.matches(r) {
			return b
		}
	}
	return rl.fallback
}

func (rl *rateLimiter) all() []*bucket {
	if rl.fallback == nil {
		return rl.buckets
	}
	return append(rl.buckets[:len(rl.buckets):len(rl.buckets)], rl.fallback)
}

func (rl *rateLimiter) evictLoop(ctx context.Context) {
	interval := time.Minute
	for _, b := range rl.all() {
		interval = min(interval, 2*b.rule.Window)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, b := range rl.all() {
				b.evict(now)
			}
		}
	}
}

// RateLimit returns a middleware enforcing per-client limits per bucket.
// Rejected requests get 429 with the JSON error body and Retry-After.
// Limited responses carry X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle clients
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go rl.evictLoop(ctx)
	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := rl.bucketFor(r)
		if b == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.key(r)
		now := time.Now()
		remaining, resetAt, ok := b.take(key, now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(b.rule.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			retry := int(math.Ceil(max(resetAt.Sub(now), 0).Seconds()))
			h.Set("Retry-After", strconv.Itoa(retry))
			zctx.From(r.Context()).Warn("Rate limit exceeded",
				zap.String("bucket", b.rule.Name),
				zap.String("client", key),
			)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey returns a key function reading the client address from the
// first present header in headers, then from RemoteAddr. Comma-separated
// header values such as X-Forwarded-For use their first element.
func ClientKey(headers ...string) func(*http.Request) string {
	return func(r *http.Request) string {
		for _, name := range headers {
			v := r.Header.Get(name)
			if v == "" {
				continue
			}
			if first, _, ok := strings.Cut(v, ","); ok {
				v = first
			}
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}
