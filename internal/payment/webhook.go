package payment

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

// StatusCompleted is the gateway status for a paid transaction.
const StatusCompleted = "completed"

// ErrInvalidWebhook is returned by Validate for a payload that does not
// belong to this project or lacks an order id or a positive amount.
var ErrInvalidWebhook = errors.New("invalid payment webhook")

// Errors returned by Match.
var (
	ErrUnknownOrder   = errors.New("payment webhook: unknown order")
	ErrAmountMismatch = errors.New("payment webhook: amount does not match order total")
)

// Webhook is the gateway's completion callback body.
type Webhook struct {
	Amount        int64  `json:"amount"`
	OrderID       string `json:"order_id"`
	Project       string `json:"project"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	CompletedAt   string `json:"completed_at"`
}

// ParseWebhook decodes a callback body.
func ParseWebhook(r io.Reader) (Webhook, error) {
	var w Webhook
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return Webhook{}, err
	}
	return w, nil
}

// Validate checks the payload against the project slug.
func (w Webhook) Validate(slug string) error {
	if w.Project != slug || w.OrderID == "" || w.Amount <= 0 {
		return ErrInvalidWebhook
	}
	return nil
}

// Match checks the payload against the sales ledger: the order must have
// been placed here and the paid amount must equal its total. The project
// slug is public, so Validate alone does not authenticate a callback.
func (w Webhook) Match(sales []domain.SaleRecord) error {
	var total int64
	found := false
	for _, s := range sales {
		if s.OrderID != w.OrderID {
			continue
		}
		found = true
		total += s.Total
	}
	if !found {
		return ErrUnknownOrder
	}
	if total != w.Amount {
		return ErrAmountMismatch
	}
	return nil
}

// Completed reports whether the transaction was paid.
func (w Webhook) Completed() bool { return w.Status == StatusCompleted }
