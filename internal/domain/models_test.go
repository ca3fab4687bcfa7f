package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (KVEntry{}).TableName() != "kv_entries" {
		t.Fatalf("KVEntry.TableName() = %q", (KVEntry{}).TableName())
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q", (Idempotency{}).TableName())
	}
}

func TestCategory_StockBearingAndValid(t *testing.T) {
	cases := []struct {
		c       Category
		bearing bool
		valid   bool
	}{
		{CategoryVPS, true, true},
		{CategoryPanel, true, true},
		{CategoryOther, false, true},
		{Category("gift"), false, false},
	}
	for _, tc := range cases {
		if got := tc.c.StockBearing(); got != tc.bearing {
			t.Errorf("%q.StockBearing() = %v; want %v", tc.c, got, tc.bearing)
		}
		if got := tc.c.Valid(); got != tc.valid {
			t.Errorf("%q.Valid() = %v; want %v", tc.c, got, tc.valid)
		}
	}
}

func TestProduct_StockValueAndWithStock(t *testing.T) {
	p := Product{ID: "oth1", Category: CategoryOther}
	if p.StockValue() != 0 {
		t.Fatalf("unspecified stock should read as 0")
	}
	q := p.WithStock(7)
	if q.StockValue() != 7 || p.Stock != nil {
		t.Fatalf("WithStock must copy: p=%v q=%v", p.Stock, q.StockValue())
	}
}

func TestProduct_JSONOmitsMissingStock(t *testing.T) {
	b, err := json.Marshal(Product{ID: "oth1", Category: CategoryOther, Name: "X", Price: 1})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["stock"]; ok {
		t.Fatalf("stock should be omitted when nil: %s", b)
	}
}

func TestCartItem_Matches(t *testing.T) {
	p := Product{ID: "vps1", Name: "BASIC VPS 1"}
	if !(CartItem{ProductID: "vps1", Service: "renamed"}).Matches(p) {
		t.Fatalf("id match should win over name")
	}
	if (CartItem{ProductID: "vps2", Service: "BASIC VPS 1"}).Matches(p) {
		t.Fatalf("different id must not match even with same name")
	}
	if !(CartItem{Service: "BASIC VPS 1"}).Matches(p) {
		t.Fatalf("legacy line without id should match by name")
	}
}

func TestMigrations_KVAndIdempotency(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&KVEntry{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasTable(&KVEntry{}) || !m.HasTable(&Idempotency{}) {
		t.Fatalf("expected both tables")
	}
	if !m.HasIndex(&Idempotency{}, "ux_profile_scope_key") {
		t.Fatalf("expected unique index ux_profile_scope_key")
	}

	now := time.Now().UTC()
	rec := &Idempotency{ID: "i1", ProfileID: "p1", Scope: "checkout", Key: "k1", OrderID: "ALFA-1", Status: 201, Response: "{}", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := &Idempotency{ID: "i2", ProfileID: "p1", Scope: "checkout", Key: "k1", OrderID: "ALFA-2", Status: 201, Response: "{}", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation on (profile_id, scope, key)")
	}

	kv := &KVEntry{Key: "products", Value: []byte("[]"), UpdatedAt: now}
	if err := db.Create(kv).Error; err != nil {
		t.Fatalf("insert kv: %v", err)
	}
	var got KVEntry
	if err := db.First(&got, "key = ?", "products").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if string(got.Value) != "[]" {
		t.Fatalf("value = %q", got.Value)
	}
}
