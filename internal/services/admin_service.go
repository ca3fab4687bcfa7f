// Package services – AdminService
//
// AdminService backs the password-gated admin dashboard. The gate itself is
// a single shared password compared by hash; there are no accounts, no
// lockout and no audit trail. Every operation here bypasses the user-facing
// guards (rate gate, honeypot, stock checks at add time).
package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// DefaultAdminHash is the SHA-256 hex digest of the storefront's stock
// admin password. Deployments should override it.
const DefaultAdminHash = "240be518fabd2724ddb6f04eeb1da5967448d7e831c08c8fa822809f74c720a9"

// AdminGate checks the shared admin password.
type AdminGate struct {
	// Hash is either a lowercase SHA-256 hex digest or a bcrypt hash ($2...).
	Hash string
}

// Check reports whether password matches. An empty password is a
// validation error rather than a mismatch.
func (g AdminGate) Check(password string) (bool, error) {
	if password == "" {
		return false, ErrValidation
	}
	hash := g.Hash
	if hash == "" {
		hash = DefaultAdminHash
	}
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
	}
	sum := sha256.Sum256([]byte(password))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(hash))) == 1, nil
}

// AdminRepo is the persistence contract used by AdminService.
type AdminRepo interface {
	ListProducts(ctx context.Context, st store.Store) ([]domain.Product, error)
	ReplaceProducts(ctx context.Context, st store.Store, all []domain.Product) error
	ResetProducts(ctx context.Context, st store.Store) ([]domain.Product, error)
	ListSales(ctx context.Context, st store.Store) ([]domain.SaleRecord, error)
	ClearSales(ctx context.Context, st store.Store) error
}

// SalesStats summarizes the ledger.
type SalesStats struct {
	TotalRevenue int64  `json:"total_revenue"`
	TotalOrders  int    `json:"total_orders"`
	BestSeller   string `json:"best_seller"`
}

// AdminService implements the admin dashboard operations.
type AdminService struct {
	Store store.Store
	Repo  AdminRepo
	Gate  AdminGate
	Now   func() time.Time

	mu sync.Mutex
}

// NewAdminService constructs an AdminService.
func NewAdminService(st store.Store, r AdminRepo, gate AdminGate) *AdminService {
	return &AdminService{Store: st, Repo: r, Gate: gate}
}

// Login checks password and returns ErrUnauthorized on mismatch.
func (s *AdminService) Login(ctx context.Context, password string) error {
	ok, err := s.Gate.Check(password)
	if err != nil {
		return err
	}
	if !ok {
		log.Ctx(ctx).Warn().Msg("admin login rejected")
		return ErrUnauthorized
	}
	return nil
}

// Products returns the full catalog.
func (s *AdminService) Products(ctx context.Context) ([]domain.Product, error) {
	return s.Repo.ListProducts(ctx, s.Store)
}

// CreateProduct appends p with a fresh millisecond-timestamp id. When the
// timestamp is already taken the next free millisecond is used.
func (s *AdminService) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.Repo.ListProducts(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	p.ID = freeProductID(all, s.now().UnixMilli())
	all = append(all, p)
	if err := s.Repo.ReplaceProducts(ctx, s.Store, all); err != nil {
		return nil, err
	}
	return &p, nil
}

func freeProductID(all []domain.Product, ms int64) string {
	taken := make(map[string]struct{}, len(all))
	for _, p := range all {
		taken[p.ID] = struct{}{}
	}
	for {
		id := strconv.FormatInt(ms, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

// UpdateProduct replaces the product with p.ID.
func (s *AdminService) UpdateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	all, err := s.Repo.ListProducts(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == p.ID {
			all[i] = p
			if err := s.Repo.ReplaceProducts(ctx, s.Store, all); err != nil {
				return nil, err
			}
			return &p, nil
		}
	}
	return nil, ErrProductNotFound
}

// DeleteProduct removes id. Unknown ids are ignored.
func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	all, err := s.Repo.ListProducts(ctx, s.Store)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, p := range all {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return s.Repo.ReplaceProducts(ctx, s.Store, kept)
}

// AdjustStock adds delta to the product's stock, flooring at zero.
func (s *AdminService) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	all, err := s.Repo.ListProducts(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		n := all[i].StockValue() + delta
		if n < 0 {
			n = 0
		}
		all[i] = all[i].WithStock(n)
		if err := s.Repo.ReplaceProducts(ctx, s.Store, all); err != nil {
			return nil, err
		}
		p := all[i]
		return &p, nil
	}
	return nil, ErrProductNotFound
}

// ResetProducts restores the default catalog.
func (s *AdminService) ResetProducts(ctx context.Context) ([]domain.Product, error) {
	return s.Repo.ResetProducts(ctx, s.Store)
}

// Sales returns the ledger, oldest first.
func (s *AdminService) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	return s.Repo.ListSales(ctx, s.Store)
}

// Stats computes revenue, line count and the best seller by summed
// quantity. Ties go to the product sold first; "-" when the ledger is empty.
func (s *AdminService) Stats(ctx context.Context) (SalesStats, error) {
	sales, err := s.Repo.ListSales(ctx, s.Store)
	if err != nil {
		return SalesStats{}, err
	}
	return ComputeStats(sales), nil
}

// ComputeStats is Stats over an already loaded ledger.
func ComputeStats(sales []domain.SaleRecord) SalesStats {
	st := SalesStats{TotalOrders: len(sales), BestSeller: "-"}
	qty := map[string]int{}
	var order []string
	for _, r := range sales {
		st.TotalRevenue += r.Total
		if _, seen := qty[r.Service]; !seen {
			order = append(order, r.Service)
		}
		qty[r.Service] += r.Quantity
	}
	if len(order) > 0 {
		sort.SliceStable(order, func(a, b int) bool { return qty[order[a]] > qty[order[b]] })
		st.BestSeller = order[0]
	}
	return st
}

// ClearSales empties the ledger.
func (s *AdminService) ClearSales(ctx context.Context) error {
	return s.Repo.ClearSales(ctx, s.Store)
}

// Security returns the visit counter and the suspicious flag.
func (s *AdminService) Security(ctx context.Context) (security.Overview, error) {
	return security.ReadOverview(ctx, s.Store)
}

// ClearSuspicious lowers the suspicious flag.
func (s *AdminService) ClearSuspicious(ctx context.Context) error {
	return security.ClearSuspicious(ctx, s.Store)
}

// WipeAll deletes every persisted key, including all profiles.
func (s *AdminService) WipeAll(ctx context.Context) (int, error) {
	keys, err := s.Store.Keys(ctx, "")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	b := store.NewBatch()
	for _, k := range keys {
		b.Delete(k)
	}
	if err := s.Store.Apply(ctx, b); err != nil {
		return 0, err
	}
	log.Ctx(ctx).Warn().Int("keys", len(keys)).Msg("admin wiped all data")
	return len(keys), nil
}

func (s *AdminService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" || p.Price <= 0 || !p.Category.Valid() {
		return ErrValidation
	}
	return nil
}
