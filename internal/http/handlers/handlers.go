package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/notify"
	"github.com/tbourn/go-storefront-backend/internal/observability"
	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
	"github.com/tbourn/go-storefront-backend/internal/utils"
)

//
// Service contracts
//

// Catalog reads the product list.
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// CartService opens profile carts and resolves product ids.
type CartService interface {
	Open(ctx context.Context, profileID string) *services.Cart
	AddProduct(ctx context.Context, c *services.Cart, productID string) (services.AddResult, error)
}

// OrderService applies a checkout to the catalog and the ledger.
type OrderService interface {
	Process(ctx context.Context, items []domain.CartItem) (*services.Order, error)
}

// TestimonialService is the moderation queue.
type TestimonialService interface {
	Submit(ctx context.Context, in services.Submission) (*domain.Testimonial, error)
	Approve(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Testimonial, error)
	ListVerified(ctx context.Context) ([]domain.Testimonial, error)
}

// ChatService answers customer questions.
type ChatService interface {
	Reply(ctx context.Context, message string) (services.Reply, error)
}

// AdminService backs the cookie-gated dashboard.
type AdminService interface {
	Login(ctx context.Context, password string) error
	Products(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
	ResetProducts(ctx context.Context) ([]domain.Product, error)
	Sales(ctx context.Context) ([]domain.SaleRecord, error)
	Stats(ctx context.Context) (services.SalesStats, error)
	ClearSales(ctx context.Context) error
	Security(ctx context.Context) (security.Overview, error)
	ClearSuspicious(ctx context.Context) error
	WipeAll(ctx context.Context) (int, error)
}

// RateGate is the per-profile action limiter.
type RateGate interface {
	Check(ctx context.Context, profileID string) error
}

// VisitTracker records page visits.
type VisitTracker interface {
	Track(ctx context.Context, profileID string) (security.Visit, error)
}

// IdempotencyStore persists checkout responses for Idempotency-Key replays.
type IdempotencyStore interface {
	Get(ctx context.Context, profileID, scope, key string, now time.Time) (*domain.Idempotency, error)
	Save(ctx context.Context, profileID, scope, key, orderID string, status int, response []byte) error
}

//
// Wiring
//

// Checkout holds the handoff settings of the checkout endpoint.
type Checkout struct {
	Gateway       payment.Gateway
	RedirectURL   string
	WhatsAppPhone string
	WhatsAppDelay time.Duration
}

// Deps are the collaborators of Handlers. Gate, Tracker, Idempotency and
// Notifier may be nil.
type Deps struct {
	Catalog      Catalog
	Carts        CartService
	Orders       OrderService
	Testimonials TestimonialService
	Chat         ChatService
	Admin        AdminService
	Gate         RateGate
	Tracker      VisitTracker
	Idempotency  IdempotencyStore
	Notifier     notify.Notifier
	Session      *middleware.AdminSession
	Checkout     Checkout
}

// Handlers groups every endpoint of the API.
type Handlers struct {
	d Deps
}

// New returns Handlers bound to d.
func New(d Deps) *Handlers {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	return &Handlers{d: d}
}

// checkGate runs the per-profile gate. On failure it writes the response
// and returns the error; only rate limit rejections count as gate blocks.
func (h *Handlers) checkGate(c *gin.Context) error {
	if h.d.Gate == nil {
		return nil
	}
	err := h.d.Gate.Check(c.Request.Context(), middleware.ProfileFrom(c))
	if err == nil {
		return nil
	}
	if errors.Is(err, security.ErrRateLimited) {
		observability.GateBlocked()
	}
	writeServiceError(c, err)
	return err
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// paginate bounds the page query parameters and slices total items.
func paginate(c *gin.Context, total int) (lo, hi int, p Pagination) {
	page, size := utils.ClampPage(c.Query("page"), c.Query("page_size"))
	lo, hi, pages := utils.Window(total, page, size)
	return lo, hi, Pagination{
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}
