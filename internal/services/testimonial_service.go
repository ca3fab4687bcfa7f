// Package services – TestimonialService
//
// TestimonialService is the moderation queue for customer reviews. New
// submissions are stored unverified at the front of the list and only
// appear on the public board after Approve. Markup is stripped from the
// free-text fields on the way in.
package services

import (
	"context"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// TestimonialRepo is the persistence contract used by TestimonialService.
type TestimonialRepo interface {
	ListTestimonials(ctx context.Context, st store.Store) ([]domain.Testimonial, error)
	SaveTestimonials(ctx context.Context, st store.Store, all []domain.Testimonial) error
}

// TestimonialService moderates testimonials.
type TestimonialService struct {
	Store store.Store
	Repo  TestimonialRepo
	Now   func() time.Time

	policy *bluemonday.Policy
	mu     sync.Mutex
}

// NewTestimonialService constructs a TestimonialService.
func NewTestimonialService(st store.Store, r TestimonialRepo) *TestimonialService {
	return &TestimonialService{Store: st, Repo: r, policy: bluemonday.StrictPolicy()}
}

// Submission is the customer-provided part of a testimonial.
type Submission struct {
	Name    string
	Rating  int
	Comment string
	Product string
}

// Submit stores a new unverified testimonial at the front of the list.
// Rating is stored as given; range checks belong to the caller.
func (s *TestimonialService) Submit(ctx context.Context, in Submission) (*domain.Testimonial, error) {
	name := s.clean(in.Name)
	comment := s.clean(in.Comment)
	product := s.clean(in.Product)
	if name == "" || comment == "" || product == "" {
		return nil, ErrValidation
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	t := domain.Testimonial{
		ID:       uuid.NewString(),
		Name:     name,
		Rating:   in.Rating,
		Comment:  comment,
		Product:  product,
		Date:     now.Format("2006-01-02"),
		Verified: false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.Repo.ListTestimonials(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	all = append([]domain.Testimonial{t}, all...)
	if err := s.Repo.SaveTestimonials(ctx, s.Store, all); err != nil {
		return nil, err
	}
	return &t, nil
}

// Approve marks id verified. Unknown ids are ignored.
func (s *TestimonialService) Approve(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.Repo.ListTestimonials(ctx, s.Store)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == id {
			all[i].Verified = true
			return s.Repo.SaveTestimonials(ctx, s.Store, all)
		}
	}
	return nil
}

// Remove deletes id unconditionally.
func (s *TestimonialService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.Repo.ListTestimonials(ctx, s.Store)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, t := range all {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return s.Repo.SaveTestimonials(ctx, s.Store, kept)
}

// ListAll returns every testimonial, newest first.
func (s *TestimonialService) ListAll(ctx context.Context) ([]domain.Testimonial, error) {
	return s.Repo.ListTestimonials(ctx, s.Store)
}

// ListVerified returns the approved testimonials, newest first.
func (s *TestimonialService) ListVerified(ctx context.Context) ([]domain.Testimonial, error) {
	all, err := s.Repo.ListTestimonials(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Testimonial, 0, len(all))
	for _, t := range all {
		if t.Verified {
			out = append(out, t)
		}
	}
	return out, nil
}

// clean reduces v to plain text. Entities are decoded before sanitizing so
// encoded markup cannot come back as live tags; the pass repeats until the
// text is stable.
func (s *TestimonialService) clean(v string) string {
	p := s.policy
	if p == nil {
		p = bluemonday.StrictPolicy()
	}
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(p.Sanitize(html.UnescapeString(v)))
		if next == v {
			return strings.TrimSpace(v)
		}
		v = next
	}
	return strings.TrimSpace(angleStripper.Replace(v))
}

const maxCleanPasses = 4

var angleStripper = strings.NewReplacer("<", "", ">", "")
