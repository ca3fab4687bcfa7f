// Package services holds the storefront business logic: the cart, order
// processing, testimonial moderation, the admin gate and the chat
// assistant. This file centralizes service-level error values so handlers
// can map them to HTTP responses with errors.Is.
package services

import (
	"errors"

	"github.com/tbourn/go-storefront-backend/internal/security"
)

var (
	// ErrOutOfStock is returned when adding a stock-bearing product whose
	// stock is zero or unspecified.
	ErrOutOfStock = errors.New("out of stock")

	// ErrStockLimitReached is returned when another unit would push a cart
	// line above the product's current stock.
	ErrStockLimitReached = errors.New("stock limit reached")

	// ErrRateLimited matches any *security.RateLimitError.
	ErrRateLimited = security.ErrRateLimited

	// ErrValidation covers missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = errors.New("product not found")

	// ErrTestimonialNotFound indicates an unknown testimonial id.
	ErrTestimonialNotFound = errors.New("testimonial not found")

	// ErrCartNotLoaded guards mutations issued before the cart was read.
	ErrCartNotLoaded = errors.New("cart not loaded")

	// ErrUnauthorized is returned for a wrong admin password.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmptyCart is returned when checking out with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
)
