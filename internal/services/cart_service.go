// Package services – Cart
//
// Cart is one profile's shopping cart. It is read from the store exactly once
// (Load) and every accepted mutation writes the full snapshot back under the
// profile's "cart" key. Mutations attempted before Load fail with
// ErrCartNotLoaded so an empty in-memory cart can never overwrite a stored
// one.
//
// CartService resolves products and hands out loaded carts per profile.
package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// User-facing add-to-cart messages.
const (
	MsgAdded        = "Ditambahkan ke keranjang!"
	MsgOutOfStock   = "Stok habis!"
	MsgStockLimited = "Stok tidak mencukupi!"
)

// AddResult reports the outcome of Cart.Add.
type AddResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Cart is a single profile's cart. Safe for concurrent use.
type Cart struct {
	st store.Store

	mu     sync.Mutex
	items  []domain.CartItem
	loaded bool
}

// NewCart binds a cart to a profile-scoped store. Call Load before mutating.
func NewCart(st store.Store) *Cart {
	return &Cart{st: st}
}

// Load reads the stored cart once. Later calls are no-ops. A missing,
// unreadable or unreachable cart loads as empty.
func (c *Cart) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	var items []domain.CartItem
	if _, err := store.GetJSON(ctx, c.st, store.KeyCart, &items); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("cart load failed; starting empty")
		items = nil
	}
	c.items = items
	c.loaded = true
}

// Loaded reports whether Load has run.
func (c *Cart) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Add puts one unit of p into the cart.
//
//   - A stock-bearing product with no stock is rejected with ErrOutOfStock.
//   - An existing line gains one unit unless that would exceed the current
//     stock, in which case ErrStockLimitReached is returned and nothing
//     changes.
//   - Otherwise a new line with quantity 1 is appended.
func (c *Cart) Add(ctx context.Context, p domain.Product) (AddResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return AddResult{}, ErrCartNotLoaded
	}

	bearing := p.Category.StockBearing()
	if bearing && p.StockValue() <= 0 {
		return AddResult{Success: false, Message: MsgOutOfStock}, ErrOutOfStock
	}

	next := c.snapshot()
	idx := -1
	for i := range next {
		if next[i].Matches(p) {
			idx = i
			break
		}
	}
	if idx >= 0 {
		if bearing && next[idx].Quantity >= p.StockValue() {
			return AddResult{Success: false, Message: MsgStockLimited}, ErrStockLimitReached
		}
		next[idx].Quantity++
		if next[idx].ProductID == "" {
			next[idx].ProductID = p.ID
		}
	} else {
		next = append(next, domain.CartItem{
			ProductID: p.ID,
			Service:   p.Name,
			Price:     p.Price,
			Quantity:  1,
			Category:  p.Category,
		})
	}
	if err := c.commit(ctx, next); err != nil {
		return AddResult{}, err
	}
	return AddResult{Success: true, Message: MsgAdded}, nil
}

// Remove deletes the line at index. Out-of-range indexes are ignored.
func (c *Cart) Remove(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return ErrCartNotLoaded
	}
	return c.removeLocked(ctx, index)
}

func (c *Cart) removeLocked(ctx context.Context, index int) error {
	if index < 0 || index >= len(c.items) {
		return nil
	}
	next := make([]domain.CartItem, 0, len(c.items)-1)
	next = append(next, c.items[:index]...)
	next = append(next, c.items[index+1:]...)
	return c.commit(ctx, next)
}

// UpdateQuantity sets the quantity of the line at index. A quantity of zero
// or less removes the line. The new quantity is not checked against stock.
func (c *Cart) UpdateQuantity(ctx context.Context, index, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return ErrCartNotLoaded
	}
	if qty <= 0 {
		return c.removeLocked(ctx, index)
	}
	if index < 0 || index >= len(c.items) {
		return nil
	}
	next := c.snapshot()
	next[index].Quantity = qty
	return c.commit(ctx, next)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return ErrCartNotLoaded
	}
	return c.commit(ctx, []domain.CartItem{})
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// TotalItems is the sum of quantities.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is the sum of price * quantity.
func (c *Cart) TotalPrice() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.items)
}

func (c *Cart) snapshot() []domain.CartItem {
	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// commit persists next and adopts it only on success.
func (c *Cart) commit(ctx context.Context, next []domain.CartItem) error {
	if err := store.SetJSON(ctx, c.st, store.KeyCart, next); err != nil {
		return err
	}
	c.items = next
	return nil
}

func totalOf(items []domain.CartItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}

// CatalogRepo is the read side of the catalog needed by the cart and chat.
type CatalogRepo interface {
	ListProducts(ctx context.Context, st store.Store) ([]domain.Product, error)
}

// CartService opens carts for profiles and resolves product ids.
type CartService struct {
	// Store is the unscoped root store.
	Store store.Store
	// Repo reads the catalog.
	Repo CatalogRepo
}

// NewCartService constructs a CartService.
func NewCartService(st store.Store, r CatalogRepo) *CartService {
	return &CartService{Store: st, Repo: r}
}

// Open returns the loaded cart of profileID.
func (s *CartService) Open(ctx context.Context, profileID string) *Cart {
	c := NewCart(store.Scoped(s.Store, store.ProfilePrefix(profileID)))
	c.Load(ctx)
	return c
}

// AddProduct looks up productID in the catalog and adds it to the cart.
func (s *CartService) AddProduct(ctx context.Context, c *Cart, productID string) (AddResult, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "AddProduct", trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	products, err := s.Repo.ListProducts(ctx, s.Store)
	if err != nil {
		return AddResult{}, err
	}
	for _, p := range products {
		if p.ID == productID {
			return c.Add(ctx, p)
		}
	}
	return AddResult{}, ErrProductNotFound
}
