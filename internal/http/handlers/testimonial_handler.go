// Testimonial HTTP handlers.
//
// This file exposes REST endpoints for customer reviews:
//   - GET  /testimonials  (verified entries only, newest first)
//   - POST /testimonials  (submit a review for moderation)
//
// Submissions are checked against the honeypot field and the per-profile
// rate gate before markup is stripped and the entry is stored unverified.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/observability"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
)

// SubmitTestimonialRequest is the review form. Website is a honeypot.
type SubmitTestimonialRequest struct {
	Name    string `json:"name" binding:"required,max=100" example:"Budi"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
	Comment string `json:"comment" binding:"required,max=1000" example:"Server cepat dan stabil"`
	Product string `json:"product" binding:"required,max=100" example:"VPS 2GB"`
	Website string `json:"website"`
}

// ListTestimonials godoc
// @ID          listTestimonials
// @Summary     Approved testimonials
// @Tags        Testimonials
// @Produce     json
// @Success     200  {array}  domain.Testimonial
// @Router      /testimonials [get]
func (h *Handlers) ListTestimonials(c *gin.Context) {
	list, err := h.d.Testimonials.ListVerified(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// SubmitTestimonial godoc
// @ID          submitTestimonial
// @Summary     Submit a testimonial for moderation
// @Description Stored unverified; an admin approves it before it is listed.
// @Tags        Testimonials
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SubmitTestimonialRequest  true  "Review"
// @Success     201  {object}  domain.Testimonial
// @Failure     400  {object}  handlers.ErrorResponse  "validation_failed or spam_detected"
// @Failure     429  {object}  handlers.ErrorResponse
// @Router      /testimonials [post]
func (h *Handlers) SubmitTestimonial(c *gin.Context) {
	var req SubmitTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		observability.TestimonialSubmitted(observability.TestimonialRejected)
		fail(c, http.StatusBadRequest, ErrCodeValidation, "name, comment, product and a rating of 1-5 are required")
		return
	}
	if security.IsSpam(req.Website) {
		observability.TestimonialSubmitted(observability.TestimonialSpam)
		middleware.LoggerFrom(c).Warn().Msg("testimonial honeypot filled")
		fail(c, http.StatusBadRequest, ErrCodeSpam, MsgSpam)
		return
	}
	if err := h.checkGate(c); err != nil {
		if errors.Is(err, security.ErrRateLimited) {
			observability.TestimonialSubmitted(observability.TestimonialRateLimited)
		}
		return
	}

	t, err := h.d.Testimonials.Submit(c.Request.Context(), services.Submission{
		Name:    req.Name,
		Rating:  req.Rating,
		Comment: req.Comment,
		Product: req.Product,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			observability.TestimonialSubmitted(observability.TestimonialRejected)
		}
		writeServiceError(c, err)
		return
	}
	observability.TestimonialSubmitted(observability.TestimonialAccepted)
	ok(c, http.StatusCreated, t)
}
