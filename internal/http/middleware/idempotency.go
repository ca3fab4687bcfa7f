// Idempotency-Key handling for checkout.
//
// This file validates the optional Idempotency-Key header and marks requests
// whose key already has a recorded response. It never writes responses
// itself; the checkout handler stores and replays them.
//
// Behavior:
//   - No header: the request passes through untouched
//   - Malformed header (too long or outside [A-Za-z0-9._~-:]): 400 bad_idempotency_key
//   - Valid header: the key is stashed for GetIdempotencyKey
//   - Known key for (profile, scope): the request is flagged with IsReplay
//     and IsRateBypass so the edge limiter lets the retry through
//
// Keys are scoped by the X-Profile-ID profile, so two shoppers may use the
// same key without colliding.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets clients retry a checkout without placing the
// order twice.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// defaultIdemPattern allows RFC 3986 unreserved characters plus ':'.
var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
// The boolean is false when the request carried no key.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether a stored response exists for the request's key.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts allowed characters.
	Pattern *regexp.Regexp
	// Scope namespaces keys per operation, e.g. "checkout".
	Scope string
}

// IdempotencyLookup reports whether an unexpired stored result exists for
// (profileID, scope, key). Errors are logged and treated as "no replay", so
// a lookup outage degrades to normal processing rather than failing checkout.
type IdempotencyLookup func(ctx context.Context, profileID, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes it and flags replays so the handler can serve the stored response
// and the edge limiter lets the retry through. A missing header is a no-op;
// a malformed one is a 400.
//
// Register it after Profile and before the rate limiter:
//
//	r.Use(middleware.Profile())
//	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: "checkout"}, lookup))
//	r.Use(limiter.Handler())
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			exists, err := lookup(c.Request.Context(), ProfileFrom(c), opts.Scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
