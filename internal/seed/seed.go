// Package seed holds the default catalog and testimonials, embedded as YAML.
// Every call decodes a fresh copy so callers may mutate the result.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

var (
	//go:embed products.yaml
	productsYAML []byte

	//go:embed testimonials.yaml
	testimonialsYAML []byte
)

// Products returns the default catalog.
func Products() ([]domain.Product, error) {
	var out []domain.Product
	if err := decodeStrict(productsYAML, &out); err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}
	return out, nil
}

// Testimonials returns the default, already verified testimonials.
func Testimonials() ([]domain.Testimonial, error) {
	var out []domain.Testimonial
	if err := decodeStrict(testimonialsYAML, &out); err != nil {
		return nil, fmt.Errorf("seed testimonials: %w", err)
	}
	return out, nil
}

// MustProducts is Products for package init and tests.
func MustProducts() []domain.Product {
	p, err := Products()
	if err != nil {
		panic(err)
	}
	return p
}

// MustTestimonials is Testimonials for package init and tests.
func MustTestimonials() []domain.Testimonial {
	t, err := Testimonials()
	if err != nil {
		panic(err)
	}
	return t
}

func decodeStrict(raw []byte, dst any) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(dst)
}
