package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/repo"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

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

type storeCatalog struct{ st store.Store }

func (c storeCatalog) Products(ctx context.Context) ([]domain.Product, error) {
	return repo.ListProducts(ctx, c.st)
}

// recordingNotifier collects notifications sent through notify.Go.
type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
	done  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 8)}
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	n.texts = append(n.texts, text)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *recordingNotifier) wait(t *testing.T) string {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("notification not sent")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.texts[len(n.texts)-1]
}

// fakeIdem is an in-memory IdempotencyStore.
type fakeIdem struct {
	mu   sync.Mutex
	recs map[string]domain.Idempotency
}

func (f *fakeIdem) Get(_ context.Context, profileID, scope, key string, _ time.Time) (*domain.Idempotency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[profileID+"|"+scope+"|"+key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeIdem) Save(_ context.Context, profileID, scope, key, orderID string, status int, response []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recs == nil {
		f.recs = map[string]domain.Idempotency{}
	}
	f.recs[profileID+"|"+scope+"|"+key] = domain.Idempotency{
		ProfileID: profileID, Scope: scope, Key: key, OrderID: orderID, Status: status, Response: string(response),
	}
	return nil
}

type testEnv struct {
	r        *gin.Engine
	st       store.Store
	notifier *recordingNotifier
	idem     *fakeIdem
	session  *middleware.AdminSession
}

func newEnv(t *testing.T, limits security.Limits) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemory()
	shim := repoShim{}
	env := &testEnv{
		st:       st,
		notifier: newRecordingNotifier(),
		idem:     &fakeIdem{},
		session:  middleware.NewAdminSession([]byte(strings.Repeat("s", 32)), nil, false, 0),
	}
	orders := services.NewOrderProcessor(st, shim)
	orders.Location = time.UTC
	h := New(Deps{
		Catalog:      storeCatalog{st: st},
		Carts:        services.NewCartService(st, shim),
		Orders:       orders,
		Testimonials: services.NewTestimonialService(st, shim),
		Chat:         services.NewChatService(nil, st, shim),
		Admin:        services.NewAdminService(st, shim, services.AdminGate{}),
		Gate:         security.NewGate(st, limits),
		Tracker:      security.NewTracker(st, security.DefaultTrackerConfig()),
		Idempotency:  env.idem,
		Notifier:     env.notifier,
		Session:      env.session,
		Checkout: Checkout{
			Gateway:       payment.Gateway{BaseURL: "https://pay.test", Slug: "alfahosting"},
			WhatsAppPhone: "6282226769163",
			WhatsAppDelay: time.Second,
		},
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Profile())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: IdempotencyScopeCheckout},
		func(ctx context.Context, profileID, scope, key string, now time.Time) (bool, error) {
			rec, _ := env.idem.Get(ctx, profileID, scope, key, now)
			return rec != nil, nil
		}))
	r.GET("/products", h.ListProducts)
	r.GET("/cart", h.GetCart)
	r.DELETE("/cart", h.ClearCart)
	r.POST("/cart/items", h.AddToCart)
	r.PATCH("/cart/items/:index", h.UpdateCartItem)
	r.DELETE("/cart/items/:index", h.RemoveCartItem)
	r.POST("/checkout", h.PlaceOrder)
	r.GET("/testimonials", h.ListTestimonials)
	r.POST("/testimonials", h.SubmitTestimonial)
	r.POST("/chat", h.Chat)
	r.POST("/visits", h.RecordVisit)
	r.POST("/payments/webhook", h.PaymentWebhook)
	r.POST("/admin/login", h.AdminLogin)
	authed := r.Group("/admin", env.session.Require())
	authed.GET("/products", h.AdminProducts)
	authed.POST("/products", h.AdminCreateProduct)
	authed.PUT("/products/:id", h.AdminUpdateProduct)
	authed.POST("/products/:id/stock", h.AdminAdjustStock)
	authed.GET("/sales", h.AdminSales)
	authed.GET("/sales/stats", h.AdminStats)
	authed.GET("/testimonials", h.AdminTestimonials)
	authed.POST("/testimonials/:id/approve", h.AdminApproveTestimonial)
	authed.DELETE("/testimonials/:id", h.AdminDeleteTestimonial)
	authed.GET("/security", h.AdminSecurity)
	authed.DELETE("/sales", h.AdminClearSales)
	authed.POST("/wipe", h.AdminWipe)
	env.r = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, profile string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if profile != "" {
		req.Header.Set(middleware.HeaderProfileID, profile)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// adminCookie logs in with the default password and returns the session.
func (e *testEnv) adminCookie(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/admin/login", "", LoginRequest{Password: "admin123"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("login -> %d %s", w.Code, w.Body.String())
	}
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.AdminCookie {
			return ck.Name + "=" + ck.Value
		}
	}
	t.Fatalf("no session cookie")
	return ""
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func wideLimits() security.Limits {
	return security.Limits{MaxRequests: 1000, Window: time.Minute, Block: 5 * time.Minute}
}
