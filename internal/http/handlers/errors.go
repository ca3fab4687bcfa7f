package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
)

// Stable, machine-readable error codes. Clients branch on these; the
// message is for display.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeValidation   = "validation_failed"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"
	ErrCodeNotAllowed   = "method_not_allowed"

	ErrCodeOutOfStock = "out_of_stock"
	ErrCodeStockLimit = "stock_limit"
	ErrCodeSpam       = "spam_detected"
)

// User-facing messages for errors the services leave in English.
const (
	MsgEmptyCart       = "Keranjang masih kosong!"
	MsgContactRequired = "Nama dan nomor WhatsApp wajib diisi!"
	MsgEmptyPassword   = "Password tidak boleh kosong!"
	MsgWrongPassword   = "Password salah!"
	MsgSpam            = "Permintaan ditolak."
)

// writeServiceError maps a service error to its status, code and message.
// Anything unrecognised is a 500.
func writeServiceError(c *gin.Context, err error) {
	var rl *security.RateLimitError
	switch {
	case errors.As(err, &rl):
		secs := int(rl.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, rl.Error())
	case errors.Is(err, services.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, err.Error())
	case errors.Is(err, services.ErrOutOfStock):
		fail(c, http.StatusConflict, ErrCodeOutOfStock, services.MsgOutOfStock)
	case errors.Is(err, services.ErrStockLimitReached):
		fail(c, http.StatusConflict, ErrCodeStockLimit, services.MsgStockLimited)
	case errors.Is(err, services.ErrEmptyCart):
		fail(c, http.StatusBadRequest, ErrCodeValidation, MsgEmptyCart)
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrProductNotFound), errors.Is(err, services.ErrTestimonialNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, MsgWrongPassword)
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
