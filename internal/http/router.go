// Package httpapi wires the Gin transport to the storefront services,
// middleware and handlers.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID, then Profile
//  3. RedactingLogger, then Recovery
//  4. body limit, gzip, metrics
//  5. Idempotency validator, then the edge limiter (replays bypass it)
//  6. CORS and security headers
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-storefront-backend/docs"
	"github.com/tbourn/go-storefront-backend/internal/config"
	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/http/handlers"
	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/notify"
	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/repo"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// App carries the runtime collaborators built by main.
type App struct {
	// Store holds all storefront state.
	Store store.Store
	// DB backs checkout idempotency records; nil disables replays.
	DB *gorm.DB
	// Completer answers chat messages; nil means rules only.
	Completer services.Completer
	// Notifier announces orders and payments; nil means none.
	Notifier notify.Notifier
}

// repoShim adapts the repo free functions to the services' repo interfaces.
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

// catalog serves the public product list.
type catalog struct{ st store.Store }

func (c catalog) Products(ctx context.Context) ([]domain.Product, error) {
	return repo.ListProducts(ctx, c.st)
}

// idempotencyStore keeps checkout responses in the idempotency table.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idempotencyStore) Get(ctx context.Context, profileID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, profileID, scope, key, now)
}

func (s idempotencyStore) Save(ctx context.Context, profileID, scope, key, orderID string, status int, response []byte) error {
	_, err := repo.CreateIdempotency(ctx, s.db, profileID, scope, key, orderID, status, response, s.ttl)
	return err
}

// RegisterRoutes installs middleware and mounts the API under
// cfg.APIBasePath. It fails only when the admin session key is unusable.
func RegisterRoutes(r *gin.Engine, app App, cfg config.Config) error {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID(), middleware.Profile())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics("/metrics", "/health"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var idem handlers.IdempotencyStore
	var lookup middleware.IdempotencyLookup
	if app.DB != nil {
		is := idempotencyStore{db: app.DB, ttl: cfg.IdempotencyTTL}
		idem = is
		lookup = func(ctx context.Context, profileID, scope, key string, now time.Time) (bool, error) {
			rec, err := is.Get(ctx, profileID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		}
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		MaxLen: 200,
		Scope:  handlers.IdempotencyScopeCheckout,
	}, lookup))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByProfileOrIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	session, err := newSession(cfg.Admin)
	if err != nil {
		return err
	}

	// Services over the shared store
	st := app.Store
	shim := repoShim{}
	orders := services.NewOrderProcessor(st, shim)
	orders.Prefix = cfg.OrderIDPrefix
	orders.Location = cfg.Location()

	chat := services.NewChatService(app.Completer, st, shim)
	if cfg.Chat.Model != "" {
		chat.Model = cfg.Chat.Model
	}
	if cfg.Chat.Threshold > 0 {
		chat.Threshold = cfg.Chat.Threshold
	}
	if cfg.Chat.MaxPrompt > 0 {
		chat.MaxPromptRunes = cfg.Chat.MaxPrompt
	}

	testimonials := services.NewTestimonialService(st, shim)
	h := handlers.New(handlers.Deps{
		Catalog:      catalog{st: st},
		Carts:        services.NewCartService(st, shim),
		Orders:       orders,
		Testimonials: testimonials,
		Chat:         chat,
		Admin:        services.NewAdminService(st, shim, services.AdminGate{Hash: cfg.Admin.PasswordHash}),
		Gate: security.NewGate(st, security.Limits{
			MaxRequests: cfg.Gate.MaxRequests,
			Window:      cfg.Gate.Window,
			Block:       cfg.Gate.Block,
		}),
		Tracker: security.NewTracker(st, security.TrackerConfig{
			HistoryCap:       cfg.Gate.VisitHistoryCap,
			SuspiciousVisits: cfg.Gate.SuspiciousVisits,
			Lookback:         time.Hour,
		}),
		Idempotency: idem,
		Notifier:    app.Notifier,
		Session:     session,
		Checkout: handlers.Checkout{
			Gateway:       payment.Gateway{BaseURL: cfg.Payment.BaseURL, Slug: cfg.Payment.Slug},
			RedirectURL:   cfg.Payment.RedirectURL,
			WhatsAppPhone: cfg.Payment.WhatsAppPhone,
			WhatsAppDelay: cfg.Payment.WhatsAppDelay,
		},
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/products", h.ListProducts)

		cart := api.Group("/cart", middleware.NoStore())
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddToCart)
		cart.PATCH("/items/:index", h.UpdateCartItem)
		cart.DELETE("/items/:index", h.RemoveCartItem)

		api.POST("/checkout", middleware.NoStore(), h.PlaceOrder)

		api.GET("/testimonials", h.ListTestimonials)
		api.POST("/testimonials", h.SubmitTestimonial)

		api.POST("/chat", h.Chat)
		api.POST("/visits", h.RecordVisit)
		api.POST("/payments/webhook", h.PaymentWebhook)
	}

	admin := api.Group("/admin", middleware.NoStore())
	{
		admin.POST("/login", h.AdminLogin)
		admin.POST("/logout", h.AdminLogout)

		authed := admin.Group("", session.Require())
		authed.GET("/products", h.AdminProducts)
		authed.POST("/products", h.AdminCreateProduct)
		authed.POST("/products/reset", h.AdminResetProducts)
		authed.PUT("/products/:id", h.AdminUpdateProduct)
		authed.DELETE("/products/:id", h.AdminDeleteProduct)
		authed.POST("/products/:id/stock", h.AdminAdjustStock)

		authed.GET("/sales", h.AdminSales)
		authed.GET("/sales/stats", h.AdminStats)
		authed.DELETE("/sales", h.AdminClearSales)

		authed.GET("/testimonials", h.AdminTestimonials)
		authed.POST("/testimonials/:id/approve", h.AdminApproveTestimonial)
		authed.DELETE("/testimonials/:id", h.AdminDeleteTestimonial)

		authed.GET("/security", h.AdminSecurity)
		authed.DELETE("/security/suspicious", h.AdminClearSuspicious)

		authed.POST("/wipe", h.AdminWipe)
	}
	return nil
}

// newSession builds the admin cookie codec. Without a configured key a
// random one is generated, so sessions do not survive a restart.
func newSession(cfg config.AdminConfig) (*middleware.AdminSession, error) {
	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("generate admin session key")
		}
	}
	return middleware.NewAdminSession(key, nil, cfg.SecureCookies, middleware.DefaultSessionTTL), nil
}

func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept",
		middleware.HeaderProfileID, middleware.HeaderIdempotencyKey,
	}
	expose := []string{"X-Request-ID", "Retry-After", "Content-Length"}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins: true,
				AllowMethods:    methods,
				AllowHeaders:    allowHeaders,
				ExposeHeaders:   expose,
				MaxAge:          12 * time.Hour,
			}),
		}
	}
	// Credentials are allowed for listed origins so the admin cookie works
	// from the storefront's own domain.
	return []gin.HandlerFunc{cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    expose,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})}
}

// limitBody caps request bodies at maxBytes; <= 0 disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
