package security

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-storefront-backend/internal/store"
	"github.com/tbourn/go-storefront-backend/internal/utils"
)

// TrackerConfig bounds the visit history.
type TrackerConfig struct {
	// HistoryCap is the number of timestamps kept per profile.
	HistoryCap int
	// SuspiciousVisits is the count within Lookback above which the global
	// suspicious flag is raised.
	SuspiciousVisits int
	Lookback         time.Duration
}

// DefaultTrackerConfig keeps 100 visits and flags more than 50 in an hour.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{HistoryCap: 100, SuspiciousVisits: 50, Lookback: time.Hour}
}

// Visit is the result of Tracker.Track.
type Visit struct {
	VisitorID   string `json:"visitor_id"`
	Recent      int    `json:"recent_visits"`
	Suspicious  bool   `json:"suspicious"`
	TotalVisits int64  `json:"total_visits"`
}

// Tracker records page visits per profile.
type Tracker struct {
	Store  store.Store
	Config TrackerConfig
	Now    func() time.Time

	mu sync.Mutex
}

// NewTracker returns a tracker over st.
func NewTracker(st store.Store, cfg TrackerConfig) *Tracker {
	return &Tracker{Store: st, Config: cfg}
}

// Track records one visit for profileID. It assigns a visitor id on first
// sight (never rotated), appends to the capped history, bumps the global
// visit counter and raises the suspicious flag on a burst. All writes land
// in one batch.
func (t *Tracker) Track(ctx context.Context, profileID string) (Visit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	nowMS := now.UnixMilli()
	prefix := store.ProfilePrefix(profileID)
	ps := store.Scoped(t.Store, prefix)
	b := store.NewBatch()

	visitorID, err := store.GetString(ctx, ps, store.KeyVisitorID)
	if err != nil {
		return Visit{}, err
	}
	if visitorID == "" {
		visitorID = "visitor_" + strconv.FormatInt(nowMS, 10) + "_" + utils.RandomBase36(9)
		b.Put(prefix+store.KeyVisitorID, []byte(visitorID))
	}

	var history []int64
	if _, err := store.GetJSON(ctx, ps, store.KeyVisitHistory, &history); err != nil {
		return Visit{}, err
	}
	history = append(history, nowMS)
	if limit := t.Config.HistoryCap; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	if err := b.PutJSON(prefix+store.KeyVisitHistory, history); err != nil {
		return Visit{}, err
	}

	total, err := readCounter(ctx, t.Store, store.KeyTotalVisits)
	if err != nil {
		return Visit{}, err
	}
	total++
	b.Put(store.KeyTotalVisits, []byte(strconv.FormatInt(total, 10)))

	cutoff := nowMS - t.Config.Lookback.Milliseconds()
	recent := 0
	for _, v := range history {
		if v > cutoff {
			recent++
		}
	}
	suspicious := recent > t.Config.SuspiciousVisits
	if suspicious {
		b.Put(store.KeySuspiciousActivity, []byte("true"))
		log.Ctx(ctx).Warn().
			Str("profile_id", profileID).
			Str("visitor_id", visitorID).
			Int("recent_visits", recent).
			Msg("visit burst")
	}

	if err := t.Store.Apply(ctx, b); err != nil {
		return Visit{}, err
	}
	return Visit{VisitorID: visitorID, Recent: recent, Suspicious: suspicious, TotalVisits: total}, nil
}

// readCounter parses an integer string value; missing or garbage reads as 0.
func readCounter(ctx context.Context, st store.Store, key string) (int64, error) {
	raw, err := store.GetString(ctx, st, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
