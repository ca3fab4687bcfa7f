// Package security implements the storefront's client-side style abuse
// heuristics on the server: a per-profile sliding-window rate gate, a bot
// signal detector, a visitor tracker and a honeypot check.
//
// None of this is a security boundary. All state is keyed by a profile id
// the client chooses, so a client that rotates its id starts from a clean
// slate. Treat every verdict as a UX throttle and a hint for the admin.
package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// ErrRateLimited is the sentinel wrapped by every *RateLimitError.
var ErrRateLimited = errors.New("rate limited")

// RateLimitError reports a rejected request and how long the caller should
// wait before retrying.
type RateLimitError struct {
	// RetryAfter is the remaining block time.
	RetryAfter time.Duration
	// Minutes is RetryAfter rounded up to whole minutes.
	Minutes int
	// JustBlocked is true when this request tripped the limit.
	JustBlocked bool
}

func (e *RateLimitError) Error() string {
	if e.JustBlocked {
		return fmt.Sprintf("Terlalu banyak request. Anda diblokir selama %d menit.", e.Minutes)
	}
	return fmt.Sprintf("Terlalu banyak request. Silakan coba lagi dalam %d menit.", e.Minutes)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Limits configures the gate.
type Limits struct {
	MaxRequests int
	Window      time.Duration
	Block       time.Duration
}

// DefaultLimits allows 10 requests per minute and blocks for 5 minutes.
func DefaultLimits() Limits {
	return Limits{MaxRequests: 10, Window: time.Minute, Block: 5 * time.Minute}
}

// Gate is a per-profile sliding-window limiter with a cool-down lock.
// Its counters live in the profile's "security_state" key.
type Gate struct {
	Store  store.Store
	Limits Limits
	// Now is the clock; nil means time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// NewGate returns a gate over st with the given limits.
func NewGate(st store.Store, limits Limits) *Gate {
	return &Gate{Store: st, Limits: limits}
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Check admits or rejects one guarded action for profileID. A rejection is
// returned as *RateLimitError; any other error comes from the store.
//
// Rules, applied in order:
//  1. blocked and the block has not expired: reject.
//  2. the window since the last counted request has passed: count = 1.
//  3. count has reached the maximum: block, raise the global suspicious
//     flag, reject. Count and last request time are kept.
//  4. otherwise count + 1.
func (g *Gate) Check(ctx context.Context, profileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	nowMS := now.UnixMilli()
	ps := store.Scoped(g.Store, store.ProfilePrefix(profileID))

	state, err := g.load(ctx, ps, nowMS)
	if err != nil {
		return err
	}

	if state.IsBlocked && state.BlockExpiry > nowMS {
		remaining := time.Duration(state.BlockExpiry-nowMS) * time.Millisecond
		return &RateLimitError{RetryAfter: remaining, Minutes: ceilMinutes(remaining)}
	}

	if nowMS-state.LastRequestTime > g.Limits.Window.Milliseconds() {
		return store.SetJSON(ctx, ps, store.KeySecurityState, domain.SecurityState{
			RequestCount:    1,
			LastRequestTime: nowMS,
		})
	}

	if state.RequestCount >= g.Limits.MaxRequests {
		state.IsBlocked = true
		state.BlockExpiry = nowMS + g.Limits.Block.Milliseconds()

		b := store.NewBatch()
		if err := b.PutJSON(store.ProfilePrefix(profileID)+store.KeySecurityState, state); err != nil {
			return err
		}
		b.Put(store.KeySuspiciousActivity, []byte("true"))
		if err := g.Store.Apply(ctx, b); err != nil {
			return err
		}
		log.Ctx(ctx).Warn().
			Str("profile_id", profileID).
			Int("count", state.RequestCount).
			Dur("block", g.Limits.Block).
			Msg("rate gate tripped")
		return &RateLimitError{RetryAfter: g.Limits.Block, Minutes: ceilMinutes(g.Limits.Block), JustBlocked: true}
	}

	state.RequestCount++
	state.LastRequestTime = nowMS
	return store.SetJSON(ctx, ps, store.KeySecurityState, state)
}

// State returns the persisted counters for profileID.
func (g *Gate) State(ctx context.Context, profileID string) (domain.SecurityState, error) {
	return g.load(ctx, store.Scoped(g.Store, store.ProfilePrefix(profileID)), g.now().UnixMilli())
}

func (g *Gate) load(ctx context.Context, ps store.Store, nowMS int64) (domain.SecurityState, error) {
	var st domain.SecurityState
	found, err := store.GetJSON(ctx, ps, store.KeySecurityState, &st)
	if err != nil {
		return domain.SecurityState{}, err
	}
	if !found {
		return domain.SecurityState{LastRequestTime: nowMS}, nil
	}
	return st, nil
}

func ceilMinutes(d time.Duration) int {
	m := int((d + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}
