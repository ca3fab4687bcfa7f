package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

func TestListProducts_SeedsOnFirstUse(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	ps, err := ListProducts(ctx, st)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(ps) != 25 {
		t.Fatalf("len = %d; want 25", len(ps))
	}
	if _, err := st.Get(ctx, store.KeyProducts); err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
}

func TestListProducts_UnreadableReseeds(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_ = st.Set(ctx, store.KeyProducts, []byte("not-json"))

	ps, err := ListProducts(ctx, st)
	if err != nil || len(ps) != 25 {
		t.Fatalf("ListProducts = (%d, %v); want 25 defaults", len(ps), err)
	}
}

func TestReplaceProducts_FullOverwrite(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	if _, err := ListProducts(ctx, st); err != nil {
		t.Fatal(err)
	}

	only := []domain.Product{{ID: "x", Category: domain.CategoryOther, Name: "X", Price: 5}}
	if err := ReplaceProducts(ctx, st, only); err != nil {
		t.Fatalf("ReplaceProducts: %v", err)
	}
	ps, _ := ListProducts(ctx, st)
	if len(ps) != 1 || ps[0].ID != "x" {
		t.Fatalf("catalog after replace = %+v", ps)
	}

	// An emptied catalog stays empty rather than reseeding.
	if err := ReplaceProducts(ctx, st, nil); err != nil {
		t.Fatal(err)
	}
	ps, _ = ListProducts(ctx, st)
	if len(ps) != 0 {
		t.Fatalf("expected empty catalog, got %d", len(ps))
	}

	reset, err := ResetProducts(ctx, st)
	if err != nil || len(reset) != 25 {
		t.Fatalf("ResetProducts = (%d, %v)", len(reset), err)
	}
}

func TestStageProducts_CommitsWithBatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	b := store.NewBatch()
	if err := StageProducts(b, []domain.Product{{ID: "a", Name: "A"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Get(ctx, store.KeyProducts); err != store.ErrNotFound {
		t.Fatalf("staging must not write")
	}
	if err := st.Apply(ctx, b); err != nil {
		t.Fatal(err)
	}
	ps, _ := ListProducts(ctx, st)
	if len(ps) != 1 {
		t.Fatalf("len = %d; want 1", len(ps))
	}
}

func TestFindProduct(t *testing.T) {
	ps := []domain.Product{{ID: "vps1", Name: "BASIC VPS 1"}, {ID: "vps2", Name: "BASIC VPS 2"}}
	if FindProduct(ps, "vps2") != 1 || FindProduct(ps, "nope") != -1 {
		t.Fatalf("FindProduct mismatch")
	}
	if FindProductByName(ps, "BASIC VPS 1") != 0 || FindProductByName(ps, "basic vps 1") != -1 {
		t.Fatalf("FindProductByName mismatch")
	}
}
