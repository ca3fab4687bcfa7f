// Package repo implements the data persistence layer for the storefront.
// This file provides the append-only sales ledger stored under
// "salesHistory".
package repo

import (
	"context"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// ListSales returns every ledger record, oldest first. A missing or
// unreadable ledger reads as empty.
func ListSales(ctx context.Context, st store.Store) ([]domain.SaleRecord, error) {
	var out []domain.SaleRecord
	if _, err := store.GetJSON(ctx, st, store.KeySalesHistory, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.SaleRecord{}
	}
	return out, nil
}

// StageSales stages the ledger with appended records added at the end.
// existing must be the ledger as read by ListSales.
func StageSales(b *store.Batch, existing, appended []domain.SaleRecord) error {
	all := make([]domain.SaleRecord, 0, len(existing)+len(appended))
	all = append(all, existing...)
	all = append(all, appended...)
	return b.PutJSON(store.KeySalesHistory, all)
}

// ClearSales empties the ledger.
func ClearSales(ctx context.Context, st store.Store) error {
	return store.SetJSON(ctx, st, store.KeySalesHistory, []domain.SaleRecord{})
}
