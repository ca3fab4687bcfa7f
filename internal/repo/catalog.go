// Package repo implements the data persistence layer for the storefront.
// This file provides the catalog repository: the full product list stored
// as one JSON document under the "products" key.
//
// Functions:
//
//   - ListProducts(ctx, st) -> []domain.Product, error
//     Returns the persisted catalog, seeding and persisting the default
//     catalog when nothing usable is stored.
//
//   - ReplaceProducts(ctx, st, all) -> error
//     Overwrites the whole catalog. No merge, no per-item validation.
//
//   - StageProducts(b, all) -> error
//     Same overwrite, staged into a batch so it commits with other writes.
//
//   - ResetProducts(ctx, st) -> []domain.Product, error
//     Overwrites the catalog with the defaults.
//
//   - FindProduct / FindProductByName
//     Index lookups over an already loaded list.
package repo

import (
	"context"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/seed"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// ListProducts returns the catalog, seeding the defaults on first use.
func ListProducts(ctx context.Context, st store.Store) ([]domain.Product, error) {
	var out []domain.Product
	found, err := store.GetJSON(ctx, st, store.KeyProducts, &out)
	if err != nil {
		return nil, err
	}
	if found && out != nil {
		return out, nil
	}
	return ResetProducts(ctx, st)
}

// ReplaceProducts overwrites the stored catalog with all.
func ReplaceProducts(ctx context.Context, st store.Store, all []domain.Product) error {
	if all == nil {
		all = []domain.Product{}
	}
	return store.SetJSON(ctx, st, store.KeyProducts, all)
}

// StageProducts stages a catalog overwrite into b.
func StageProducts(b *store.Batch, all []domain.Product) error {
	if all == nil {
		all = []domain.Product{}
	}
	return b.PutJSON(store.KeyProducts, all)
}

// ResetProducts restores and returns the default catalog.
func ResetProducts(ctx context.Context, st store.Store) ([]domain.Product, error) {
	defaults, err := seed.Products()
	if err != nil {
		return nil, err
	}
	if err := ReplaceProducts(ctx, st, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

// FindProduct returns the index of the product with id, or -1.
func FindProduct(products []domain.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// FindProductByName returns the index of the first product named name, or -1.
func FindProductByName(products []domain.Product, name string) int {
	for i := range products {
		if products[i].Name == name {
			return i
		}
	}
	return -1
}
