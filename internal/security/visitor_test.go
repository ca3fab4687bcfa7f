package security

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront-backend/internal/store"
)

var visitorIDRe = regexp.MustCompile(`^visitor_\d+_[0-9a-z]{9}$`)

func newTracker(st store.Store, clk *fakeClock) *Tracker {
	tr := NewTracker(st, DefaultTrackerConfig())
	tr.Now = clk.Now
	return tr
}

func TestTracker_AssignsStableVisitorID(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	tr := newTracker(st, clk)

	v1, err := tr.Track(ctx, "p1")
	require.NoError(t, err)
	assert.Regexp(t, visitorIDRe, v1.VisitorID)
	assert.Contains(t, v1.VisitorID, "_1700000000000_")

	clk.Advance(time.Minute)
	v2, err := tr.Track(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, v1.VisitorID, v2.VisitorID)
	assert.Equal(t, 2, v2.Recent)
	assert.EqualValues(t, 2, v2.TotalVisits)

	other, _ := tr.Track(ctx, "p2")
	assert.NotEqual(t, v1.VisitorID, other.VisitorID)
	assert.EqualValues(t, 3, other.TotalVisits)

	ov, err := ReadOverview(ctx, st)
	require.NoError(t, err)
	assert.EqualValues(t, 3, ov.TotalVisits)
	assert.False(t, ov.Suspicious)
}

func TestTracker_HistoryCappedAt100(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	tr := newTracker(st, clk)
	first := clk.Now().UnixMilli()

	for i := 0; i < 101; i++ {
		_, err := tr.Track(ctx, "p1")
		require.NoError(t, err)
		clk.Advance(2 * time.Hour)
	}

	var history []int64
	_, err := store.GetJSON(ctx, store.Scoped(st, store.ProfilePrefix("p1")), store.KeyVisitHistory, &history)
	require.NoError(t, err)
	assert.Len(t, history, 100)
	assert.NotEqual(t, first, history[0], "oldest entry should be evicted")
}

func TestTracker_BurstRaisesSuspiciousFlag(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	tr := newTracker(st, clk)

	var last Visit
	for i := 0; i < 50; i++ {
		v, err := tr.Track(ctx, "p1")
		require.NoError(t, err)
		last = v
		clk.Advance(time.Second)
	}
	assert.False(t, last.Suspicious, "exactly 50 visits is not a burst")

	last, err := tr.Track(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, last.Suspicious)
	assert.Equal(t, 51, last.Recent)

	ov, _ := ReadOverview(ctx, st)
	assert.True(t, ov.Suspicious)

	require.NoError(t, ClearSuspicious(ctx, st))
	ov, _ = ReadOverview(ctx, st)
	assert.False(t, ov.Suspicious)
}

func TestReadOverview_GarbageCounterReadsZero(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, store.KeyTotalVisits, []byte("lots")))
	ov, err := ReadOverview(ctx, st)
	require.NoError(t, err)
	assert.Zero(t, ov.TotalVisits)
}
