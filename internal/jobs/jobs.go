// Package jobs runs the storefront housekeeping on a cron schedule: expired
// checkout idempotency records are purged and a daily sales summary is
// logged and sent to the operator.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/notify"
	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/repo"
	"github.com/tbourn/go-storefront-backend/internal/services"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	c *cron.Cron
}

// New returns a scheduler evaluating specs in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{c: cron.New(cron.WithLocation(loc))}
}

// Add registers fn under spec. Panics inside fn are logged, not fatal.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("job", name).Interface("panic", r).Msg("job panicked")
			}
		}()
		start := time.Now()
		if err := fn(context.Background()); err != nil {
			log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job done")
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.c.Entries()) }

// Start runs the scheduler in the background.
func (s *Scheduler) Start() { s.c.Start() }

// Stop stops scheduling and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// PurgeIdempotency deletes expired checkout replay records.
func PurgeIdempotency(db *gorm.DB, now func() time.Time) func(context.Context) error {
	return func(ctx context.Context) error {
		n, err := repo.PurgeExpiredIdempotency(ctx, db, now().UTC())
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int64("rows", n).Msg("purged expired idempotency records")
		}
		return nil
	}
}

// SalesSummary reports the ledger lines of the trailing 24 hours.
func SalesSummary(st store.Store, n notify.Notifier, now func() time.Time) func(context.Context) error {
	return func(ctx context.Context) error {
		sales, err := repo.ListSales(ctx, st)
		if err != nil {
			return err
		}
		since := now().Add(-24 * time.Hour).UnixMilli()
		var recent []domain.SaleRecord
		for _, r := range sales {
			if r.Timestamp >= since {
				recent = append(recent, r)
			}
		}
		stats := services.ComputeStats(recent)
		log.Info().
			Int64("revenue", stats.TotalRevenue).
			Int("order_lines", stats.TotalOrders).
			Str("best_seller", stats.BestSeller).
			Msg("daily sales summary")
		if n == nil {
			return nil
		}
		return n.Notify(ctx, SummaryText(stats))
	}
}

// SummaryText renders stats for the operator.
func SummaryText(s services.SalesStats) string {
	return fmt.Sprintf("📊 Ringkasan 24 jam\nPendapatan: %s\nItem terjual: %d\nTerlaris: %s",
		payment.FormatIDR(s.TotalRevenue), s.TotalOrders, s.BestSeller)
}
