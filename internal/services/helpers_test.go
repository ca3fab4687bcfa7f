package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/repo"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// repoShim satisfies every repo interface of this package with the real
// repo functions.
type repoShim struct{}

func (repoShim) ListProducts(ctx context.Context, st store.Store) ([]domain.Product, error) {
	return repo.ListProducts(ctx, st)
}
func (repoShim) ReplaceProducts(ctx context.Context, st store.Store, all []domain.Product) error {
	return repo.ReplaceProducts(ctx, st, all)
}
func (repoShim) StageProducts(b *store.Batch, all []domain.Product) error {
	return repo.StageProducts(b, all)
}
func (repoShim) ResetProducts(ctx context.Context, st store.Store) ([]domain.Product, error) {
	return repo.ResetProducts(ctx, st)
}
func (repoShim) ListSales(ctx context.Context, st store.Store) ([]domain.SaleRecord, error) {
	return repo.ListSales(ctx, st)
}
func (repoShim) StageSales(b *store.Batch, existing, appended []domain.SaleRecord) error {
	return repo.StageSales(b, existing, appended)
}
func (repoShim) ClearSales(ctx context.Context, st store.Store) error {
	return repo.ClearSales(ctx, st)
}
func (repoShim) ListTestimonials(ctx context.Context, st store.Store) ([]domain.Testimonial, error) {
	return repo.ListTestimonials(ctx, st)
}
func (repoShim) SaveTestimonials(ctx context.Context, st store.Store, all []domain.Testimonial) error {
	return repo.SaveTestimonials(ctx, st, all)
}

// staticCatalog serves a fixed product list.
type staticCatalog []domain.Product

func (c staticCatalog) ListProducts(context.Context, store.Store) ([]domain.Product, error) {
	return []domain.Product(c), nil
}

func productByID(t *testing.T, st store.Store, id string) domain.Product {
	t.Helper()
	all, err := repo.ListProducts(context.Background(), st)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	i := repo.FindProduct(all, id)
	if i < 0 {
		t.Fatalf("product %q not in catalog", id)
	}
	return all[i]
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
