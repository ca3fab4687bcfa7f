// Package store is the durable key/value layer every storefront component
// reads and writes through. It replaces the browser's local storage with a
// pluggable backend (SQL via GORM, Redis, or in-memory) while keeping the
// same logical keys and JSON-encoded values.
//
// Semantics:
//   - Get returns ErrNotFound when a key is absent.
//   - Set and Delete are last-write-wins; there is no conflict detection.
//   - Apply commits every put/delete of a Batch in a single backend write,
//     so a reader never observes half of it.
//   - Scoped namespaces keys, which is how per-profile state (cart, gate
//     counters, visit history) is kept apart from global state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Logical keys.
const (
	KeyProducts           = "products"
	KeyCart               = "cart"
	KeySalesHistory       = "salesHistory"
	KeyTestimonials       = "testimonials"
	KeySecurityState      = "security_state"
	KeySuspiciousActivity = "suspicious_activity"
	KeyTotalVisits        = "total_visits"
	KeyVisitHistory       = "visit_history"
	KeyVisitorID          = "visitor_id"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is the key/value contract shared by all backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Apply commits all operations of b atomically.
	Apply(ctx context.Context, b *Batch) error
	// Keys lists keys starting with prefix ("" lists everything).
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Op is a single staged batch operation. A nil Value means delete.
type Op struct {
	Key   string
	Value []byte
}

// Batch stages puts and deletes for Store.Apply. Later operations on the
// same key win.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Put stages key=value.
func (b *Batch) Put(key string, value []byte) {
	b.ops = append(b.ops, Op{Key: key, Value: value})
}

// PutJSON stages the JSON encoding of v.
func (b *Batch) PutJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Put(key, raw)
	return nil
}

// Delete stages removal of key.
func (b *Batch) Delete(key string) {
	b.ops = append(b.ops, Op{Key: key})
}

// Ops returns the staged operations with earlier writes to the same key
// collapsed into the last one, preserving first-seen key order.
func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	last := make(map[string]int, len(b.ops))
	order := make([]string, 0, len(b.ops))
	for i, op := range b.ops {
		if _, seen := last[op.Key]; !seen {
			order = append(order, op.Key)
		}
		last[op.Key] = i
	}
	out := make([]Op, 0, len(order))
	for _, k := range order {
		out = append(out, b.ops[last[k]])
	}
	return out
}

// Len returns the number of distinct keys staged.
func (b *Batch) Len() int { return len(b.Ops()) }

// GetJSON decodes the value at key into dst.
//
// It reports found=false when the key is absent or its value cannot be
// decoded; a decode failure is logged and otherwise treated like an empty
// slot so callers fall back to their defaults. Only backend failures are
// returned as errors.
func GetJSON(ctx context.Context, s Store, key string, dst any) (found bool, err error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding unreadable stored value")
		return false, nil
	}
	return true, nil
}

// SetJSON stores the JSON encoding of v under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}

// GetString returns the raw value at key as a string, or "" when absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ProfilePrefix returns the key namespace for a client profile.
func ProfilePrefix(profileID string) string {
	return "profile:" + profileID + ":"
}

// Scoped returns a view of s whose keys are transparently prefixed.
func Scoped(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &scoped{inner: s, prefix: prefix}
}

type scoped struct {
	inner  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.inner.Delete(ctx, full...)
}

func (s *scoped) Apply(ctx context.Context, b *Batch) error {
	nb := NewBatch()
	for _, op := range b.Ops() {
		nb.ops = append(nb.ops, Op{Key: s.prefix + op.Key, Value: op.Value})
	}
	return s.inner.Apply(ctx, nb)
}

func (s *scoped) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.Keys(ctx, s.prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.prefix))
	}
	return out, nil
}
