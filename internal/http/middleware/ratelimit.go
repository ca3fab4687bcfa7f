// Per-key token-bucket rate limiting for the storefront edge.
//
// This file implements an in-memory limiter with one golang.org/x/time/rate
// bucket per identity and opportunistic eviction of idle buckets. It sits in
// front of the storefront's per-profile action gate and only guards against
// request floods; the gate decides which shopper actions are allowed.
//
// Features:
//   - Buckets keyed by X-Profile-ID, or by client IP for anonymous callers
//   - Idle buckets evicted every 5000 lookups to bound memory
//   - Checkout replays flagged by IdempotencyValidator skip the limiter
//
// Notes:
//   - The limiter is process-local. Several replicas each enforce their own
//     budget; the Redis-backed gate is what holds across replicas.
//   - Rejections use the API's ErrorResponse shape with code rate_limited.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to its bucket.
//
// The returned key must be stable for the duration of a request. Keys are
// prefixed ("profile:", "ip:") so the two namespaces never collide.
type keyFunc func(*gin.Context) string

// KeyByProfileOrIP keys buckets by the resolved profile, falling back to the
// client IP for anonymous callers so they do not share one bucket.
func KeyByProfileOrIP() keyFunc {
	return func(c *gin.Context) string {
		if p := ProfileFrom(c); p != AnonymousProfile {
			return "profile:" + p
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor is one bucket plus the last time it was used, for eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local, per-key token bucket used as a coarse
// edge guard in front of the storefront's own per-profile gate.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
//
// Buckets idle for longer than ten minutes are dropped on the next sweep.
// A dropped bucket starts full again, which is acceptable for an edge guard.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor sweeps idle buckets every 5000 lookups, before touching key, so
// a stale bucket for key itself is replaced.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether the request is an idempotent replay.
//
// IdempotencyValidator sets the flag when a checkout retry carries a key that
// already has a recorded response; replaying it costs no new work.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler rejects requests over the limit with 429 and Retry-After: 1.
//
// Response body:
//
//	{"request_id": "...", "code": "rate_limited", "message": "rate limit exceeded"}
//
// Register it after RequestID and Profile so the key and request id are set.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
