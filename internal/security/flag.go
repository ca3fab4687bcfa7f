package security

import (
	"context"

	"github.com/tbourn/go-storefront-backend/internal/store"
)

// Overview is the admin view of the global abuse indicators.
type Overview struct {
	TotalVisits int64 `json:"total_visits"`
	Suspicious  bool  `json:"suspicious_activity"`
}

// ReadOverview loads the global visit counter and suspicious flag.
func ReadOverview(ctx context.Context, st store.Store) (Overview, error) {
	total, err := readCounter(ctx, st, store.KeyTotalVisits)
	if err != nil {
		return Overview{}, err
	}
	flag, err := store.GetString(ctx, st, store.KeySuspiciousActivity)
	if err != nil {
		return Overview{}, err
	}
	return Overview{TotalVisits: total, Suspicious: flag == "true"}, nil
}

// ClearSuspicious removes the global suspicious flag.
func ClearSuspicious(ctx context.Context, st store.Store) error {
	return st.Delete(ctx, store.KeySuspiciousActivity)
}
