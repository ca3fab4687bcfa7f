// Payment webhook handler.
//
// POST /payments/webhook receives the gateway's completion callback. The
// project slug is public, so a callback is only trusted when its order id
// exists in the sales ledger and the paid amount equals that order's total.
// Completed payments are logged and announced to the operator.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/notify"
	"github.com/tbourn/go-storefront-backend/internal/payment"
)

// PaymentWebhook godoc
// @ID          paymentWebhook
// @Summary     Payment gateway callback
// @Description Validates the project slug, then requires the order id to exist in the sales ledger with a matching total before logging and announcing completed payments.
// @Tags        Payments
// @Accept      json
// @Produce     json
// @Param       body  body  payment.Webhook  true  "Callback"
// @Success     200  {object}  map[string]bool
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /payments/webhook [post]
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	w, err := payment.ParseWebhook(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := w.Validate(h.d.Checkout.Gateway.Slug); err != nil {
		middleware.LoggerFrom(c).Warn().Str("project", w.Project).Str("order_id", w.OrderID).Msg("webhook rejected")
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	sales, err := h.d.Admin.Sales(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if err := w.Match(sales); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("order_id", w.OrderID).Int64("amount", w.Amount).Msg("webhook rejected")
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().
		Str("order_id", w.OrderID).
		Int64("amount", w.Amount).
		Str("status", w.Status).
		Str("payment_method", w.PaymentMethod).
		Msg("payment webhook")
	if w.Completed() {
		notify.Go(c.Request.Context(), h.d.Notifier, notify.PaymentText(w))
	}
	ok(c, http.StatusOK, gin.H{"received": true})
}
