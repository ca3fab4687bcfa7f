// Package repo implements the data persistence layer for the storefront.
// This file stores the testimonial list (newest first) under
// "testimonials".
package repo

import (
	"context"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/seed"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// ListTestimonials returns all testimonials, seeding the verified defaults
// when nothing usable is stored.
func ListTestimonials(ctx context.Context, st store.Store) ([]domain.Testimonial, error) {
	var out []domain.Testimonial
	found, err := store.GetJSON(ctx, st, store.KeyTestimonials, &out)
	if err != nil {
		return nil, err
	}
	if found && out != nil {
		return out, nil
	}
	defaults, err := seed.Testimonials()
	if err != nil {
		return nil, err
	}
	if err := SaveTestimonials(ctx, st, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

// SaveTestimonials overwrites the stored list.
func SaveTestimonials(ctx context.Context, st store.Store, all []domain.Testimonial) error {
	if all == nil {
		all = []domain.Testimonial{}
	}
	return store.SetJSON(ctx, st, store.KeyTestimonials, all)
}
