// Package domain defines the storefront data model: catalog products, cart
// lines, sales ledger records, testimonials, and the persisted security
// counters. These types are JSON-encoded into the key/value store and are
// shared across the repository, service, and HTTP layers.
//
// KVEntry is the only GORM-mapped row in this file; it backs the SQL flavour
// of the key/value store.
package domain

import "time"

// Category classifies a product. Only stock-bearing categories track a
// finite inventory count.
type Category string

const (
	CategoryVPS   Category = "vps"
	CategoryPanel Category = "panel"
	CategoryOther Category = "other"
)

// StockBearing reports whether products in this category carry a finite
// stock count. "other" is an unlimited service offering.
func (c Category) StockBearing() bool {
	return c == CategoryVPS || c == CategoryPanel
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryVPS, CategoryPanel, CategoryOther:
		return true
	}
	return false
}

// Product is a catalog entry.
//
// Fields:
//   - ID: unique, stable identifier.
//   - Category: vps, panel or other.
//   - Name: display name (historically also the join key for cart lines).
//   - Price: positive integer in the smallest currency unit (IDR).
//   - Stock: optional; meaningful only for stock-bearing categories.
//   - Desc: free-text description.
//   - Recommend: "best seller" flag.
type Product struct {
	ID        string   `json:"id"               yaml:"id"`
	Category  Category `json:"category"         yaml:"category"`
	Name      string   `json:"name"             yaml:"name"`
	Price     int64    `json:"price"            yaml:"price"`
	Stock     *int     `json:"stock,omitempty"  yaml:"stock,omitempty"`
	Desc      string   `json:"desc"             yaml:"desc"`
	Recommend bool     `json:"recommend,omitempty" yaml:"recommend,omitempty"`
}

// StockValue returns the stock count, treating an unspecified stock as 0.
func (p Product) StockValue() int {
	if p.Stock == nil {
		return 0
	}
	return *p.Stock
}

// WithStock returns a copy of p with the stock set to n.
func (p Product) WithStock(n int) Product {
	p.Stock = &n
	return p
}

// CartItem is one line in a profile's cart. Service (the product name) is
// kept as a display cache; ProductID is the join key back to the catalog.
// Lines persisted before ProductID existed carry an empty id and are matched
// by name.
type CartItem struct {
	ProductID string   `json:"product_id,omitempty"`
	Service   string   `json:"service"`
	Price     int64    `json:"price"`
	Quantity  int      `json:"quantity"`
	Category  Category `json:"category"`
}

// Matches reports whether the line refers to p.
func (it CartItem) Matches(p Product) bool {
	if it.ProductID != "" && p.ID != "" {
		return it.ProductID == p.ID
	}
	return it.Service == p.Name
}

// SaleRecord is one append-only ledger line written at checkout.
type SaleRecord struct {
	OrderID   string `json:"order_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Service   string `json:"service"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Total     int64  `json:"total"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// Testimonial is a customer review. New submissions start unverified and are
// hidden from the public board until an admin approves them.
type Testimonial struct {
	ID       string `json:"id"               yaml:"id"`
	Name     string `json:"name"             yaml:"name"`
	Avatar   string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Rating   int    `json:"rating"           yaml:"rating"`
	Comment  string `json:"comment"          yaml:"comment"`
	Product  string `json:"product"          yaml:"product"`
	Date     string `json:"date"             yaml:"date"`
	Verified bool   `json:"verified"         yaml:"verified"`
}

// SecurityState is the persisted sliding-window counter plus cool-down lock.
// Times are Unix milliseconds to keep the stored shape identical to what the
// storefront wrote historically.
type SecurityState struct {
	IsBlocked       bool  `json:"isBlocked"`
	BlockExpiry     int64 `json:"blockExpiry"`
	RequestCount    int   `json:"requestCount"`
	LastRequestTime int64 `json:"lastRequestTime"`
}

// KVEntry is a single key/value row of the SQL-backed store.
type KVEntry struct {
	Key       string    `gorm:"type:varchar(191);primaryKey"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_entries" }
