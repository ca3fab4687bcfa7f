// Package services – OrderProcessor
//
// OrderProcessor turns a cart into an order: it generates the order id,
// decrements stock for stock-bearing products (floored at zero, overselling
// is not rejected) and appends one ledger record per line. The catalog
// overwrite and the ledger append are staged into a single store batch and
// applied under an in-process mutex, so a reader in this process never sees
// one without the other.
//
// Process is NOT idempotent: calling it twice with the same items
// decrements twice and appends twice. Retry safety lives one layer up, in
// the checkout Idempotency-Key replay.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/store"
	"github.com/tbourn/go-storefront-backend/internal/utils"
)

// DefaultOrderPrefix starts every order id.
const DefaultOrderPrefix = "ALFA"

// OrderRepo is the persistence contract used by OrderProcessor.
type OrderRepo interface {
	ListProducts(ctx context.Context, st store.Store) ([]domain.Product, error)
	StageProducts(b *store.Batch, all []domain.Product) error
	ListSales(ctx context.Context, st store.Store) ([]domain.SaleRecord, error)
	StageSales(b *store.Batch, existing, appended []domain.SaleRecord) error
}

// Order is a processed checkout.
type Order struct {
	ID      string              `json:"order_id"`
	Items   []domain.CartItem   `json:"items"`
	Total   int64               `json:"total"`
	Records []domain.SaleRecord `json:"records"`
}

// OrderProcessor applies checkouts to the catalog and the sales ledger.
type OrderProcessor struct {
	Store  store.Store
	Repo   OrderRepo
	Prefix string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
	// Location renders the ledger date; nil means time.Local.
	Location *time.Location

	mu sync.Mutex
}

// NewOrderProcessor constructs an OrderProcessor with the default prefix.
func NewOrderProcessor(st store.Store, r OrderRepo) *OrderProcessor {
	return &OrderProcessor{Store: st, Repo: r, Prefix: DefaultOrderPrefix}
}

func (p *OrderProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// NewOrderID returns <PREFIX>-<base36 unix ms>-<4 random base36>, upper case.
func (p *OrderProcessor) NewOrderID(at time.Time) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	ts := strconv.FormatInt(at.UnixMilli(), 36)
	return strings.ToUpper(prefix + "-" + ts + "-" + utils.RandomBase36(4))
}

// Process records an order for items and returns it.
func (p *OrderProcessor) Process(ctx context.Context, items []domain.CartItem) (*Order, error) {
	tr := otel.Tracer("services/OrderProcessor")
	ctx, span := tr.Start(ctx, "Process", trace.WithAttributes(attribute.Int("items", len(items))))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	order := &Order{ID: p.NewOrderID(now), Items: items, Total: totalOf(items)}
	span.SetAttributes(attribute.String("order.id", order.ID))

	products, err := p.Repo.ListProducts(ctx, p.Store)
	if err != nil {
		return nil, err
	}
	sales, err := p.Repo.ListSales(ctx, p.Store)
	if err != nil {
		return nil, err
	}

	date := ledgerDate(now, p.Location)
	records := make([]domain.SaleRecord, 0, len(items))
	for _, it := range items {
		if i := matchProduct(products, it); i >= 0 && products[i].Category.StockBearing() {
			left := products[i].StockValue() - it.Quantity
			if left < 0 {
				left = 0
			}
			products[i] = products[i].WithStock(left)
		}
		records = append(records, domain.SaleRecord{
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Service:   it.Service,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Total:     it.Price * int64(it.Quantity),
			Date:      date,
			Timestamp: now.UnixMilli(),
		})
	}

	b := store.NewBatch()
	if err := p.Repo.StageProducts(b, products); err != nil {
		return nil, err
	}
	if err := p.Repo.StageSales(b, sales, records); err != nil {
		return nil, err
	}
	if err := p.Store.Apply(ctx, b); err != nil {
		return nil, fmt.Errorf("apply order %s: %w", order.ID, err)
	}
	order.Records = records
	return order, nil
}

// matchProduct finds the catalog entry for a cart line: by id when the line
// carries one, else by name.
func matchProduct(products []domain.Product, it domain.CartItem) int {
	for i := range products {
		if it.Matches(products[i]) {
			return i
		}
	}
	return -1
}

// ledgerDate renders d/m/yyyy without zero padding.
func ledgerDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}
