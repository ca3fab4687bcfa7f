// Checkout HTTP handler.
//
// This file exposes POST /checkout, which turns the profile's cart into an
// order: stock is decremented, one ledger line per cart line is written,
// and the cart is cleared. The response carries the hosted payment URL for
// gateway methods and the WhatsApp confirmation link for every method.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a checkout with the
// same (profile, key) already succeeded, the recorded response is returned
// unchanged with `Idempotent-Replay: true` and no second order is placed.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/notify"
	"github.com/tbourn/go-storefront-backend/internal/observability"
	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/repo"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
)

// Checkout methods. The first three hand off to the hosted gateway; the
// e-wallets are settled manually over WhatsApp.
const (
	MethodPakasir = "pakasir"
	MethodQRIS    = "qris"
	MethodPayPal  = "paypal"
	MethodDana    = "dana"
	MethodGoPay   = "gopay"
	MethodOVO     = "ovo"
)

// IdempotencyScopeCheckout namespaces checkout keys.
const IdempotencyScopeCheckout = "checkout"

func gatewayMethod(m string) bool {
	return m == MethodPakasir || m == MethodQRIS || m == MethodPayPal
}

func manualMethod(m string) bool {
	return m == MethodDana || m == MethodGoPay || m == MethodOVO
}

// CheckoutRequest is the checkout form. Website is a honeypot and must be
// left empty.
type CheckoutRequest struct {
	Name    string `json:"name" example:"Budi"`
	Email   string `json:"email" example:"budi@example.com"`
	Phone   string `json:"phone" example:"081234567890"`
	Method  string `json:"method" example:"pakasir"`
	Website string `json:"website"`
}

// CheckoutResponse tells the client where to send the buyer. WhatsAppURL
// should be opened WhatsAppDelayMs after PaymentURL.
type CheckoutResponse struct {
	OrderID         string `json:"order_id" example:"ALFA-LOYW3V28-K3ZQ"`
	Total           int64  `json:"total" example:"45000"`
	Method          string `json:"method" example:"pakasir"`
	PaymentURL      string `json:"payment_url,omitempty"`
	WhatsAppURL     string `json:"whatsapp_url"`
	WhatsAppDelayMs int64  `json:"whatsapp_delay_ms" example:"1000"`
}

// PlaceOrder godoc
// @ID          checkout
// @Summary     Check out the cart
// @Description Records the order, decrements stock, clears the cart and returns the payment and WhatsApp links.
// @Description Not idempotent by itself; send Idempotency-Key to make retries replay the first response.
// @Tags        Checkout
// @Accept      json
// @Produce     json
// @Param       X-Profile-ID     header  string  false  "Client profile"
// @Param       Idempotency-Key  header  string  false  "Retry key"
// @Param       body  body  handlers.CheckoutRequest  true  "Checkout form"
// @Success     201  {object}  handlers.CheckoutResponse
// @Failure     400  {object}  handlers.ErrorResponse  "validation_failed or spam_detected"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /checkout [post]
func (h *Handlers) PlaceOrder(c *gin.Context) {
	ctx := c.Request.Context()
	profileID := middleware.ProfileFrom(c)
	idemKey, hasKey := middleware.GetIdempotencyKey(c)

	if hasKey && middleware.IsReplay(c) && h.replay(c, profileID, idemKey) {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if security.IsSpam(req.Website) {
		middleware.LoggerFrom(c).Warn().Msg("checkout honeypot filled")
		fail(c, http.StatusBadRequest, ErrCodeSpam, MsgSpam)
		return
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = MethodPakasir
	}
	if !gatewayMethod(method) && !manualMethod(method) {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "unknown payment method")
		return
	}
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if gatewayMethod(method) && (name == "" || phone == "") {
		fail(c, http.StatusBadRequest, ErrCodeValidation, MsgContactRequired)
		return
	}

	cart := h.d.Carts.Open(ctx, profileID)
	items := cart.Items()
	if len(items) == 0 {
		writeServiceError(c, services.ErrEmptyCart)
		return
	}

	order, err := h.d.Orders.Process(ctx, items)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if err := cart.Clear(ctx); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("order_id", order.ID).Msg("cart not cleared after checkout")
	}

	resp := CheckoutResponse{
		OrderID:     order.ID,
		Total:       order.Total,
		Method:      method,
		WhatsAppURL: payment.WhatsAppURL(h.d.Checkout.WhatsAppPhone, order.Items, order.Total, order.ID),
	}
	co := h.d.Checkout
	switch method {
	case MethodPakasir:
		resp.PaymentURL = co.Gateway.PayURL(order.Total, order.ID, payment.Options{RedirectURL: co.RedirectURL})
	case MethodQRIS:
		resp.PaymentURL = co.Gateway.PayURL(order.Total, order.ID, payment.Options{RedirectURL: co.RedirectURL, QRISOnly: true})
	case MethodPayPal:
		resp.PaymentURL = co.Gateway.PayPalURL(order.Total, order.ID, co.RedirectURL)
	}
	if resp.PaymentURL != "" {
		resp.WhatsAppDelayMs = co.WhatsAppDelay.Milliseconds()
	}

	if hasKey && h.d.Idempotency != nil {
		body, _ := json.Marshal(resp)
		if err := h.d.Idempotency.Save(ctx, profileID, IdempotencyScopeCheckout, idemKey, order.ID, http.StatusCreated, body); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("order_id", order.ID).Msg("idempotency record not saved")
		}
	}

	observability.OrderPlaced(order.Total)
	middleware.LoggerFrom(c).Info().
		Str("order_id", order.ID).
		Str("method", method).
		Int64("total", order.Total).
		Int("lines", len(order.Items)).
		Msg("order placed")
	notify.Go(ctx, h.d.Notifier, notify.OrderText(order.ID, name, phone, order.Items, order.Total))

	ok(c, http.StatusCreated, resp)
}

// replay writes the stored response for key. It returns false when nothing
// usable is stored, so the request proceeds as new.
func (h *Handlers) replay(c *gin.Context, profileID, key string) bool {
	if h.d.Idempotency == nil {
		return false
	}
	rec, err := h.d.Idempotency.Get(c.Request.Context(), profileID, IdempotencyScopeCheckout, key, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency replay failed")
		}
		return false
	}
	c.Header("Idempotent-Replay", "true")
	c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.Response))
	return true
}
