// Package notify delivers short operator alerts (new orders, completed
// payments, daily summaries). Delivery is best effort: callers log a failed
// send and move on.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/payment"
)

// Notifier sends a plain-text message to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// Sender is the part of *tgbotapi.BotAPI used by Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts messages to one chat.
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender uses an existing sender.
func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Go sends text on a detached goroutine and logs failures.
func Go(ctx context.Context, n Notifier, text string) {
	if n == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := n.Notify(ctx, text); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("notification failed")
		}
	}()
}

// OrderText renders a new-order alert.
func OrderText(orderID, customer, phone string, items []domain.CartItem, total int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 Pesanan baru %s\n", orderID)
	if customer != "" {
		fmt.Fprintf(&sb, "👤 %s", customer)
		if phone != "" {
			fmt.Fprintf(&sb, " (%s)", phone)
		}
		sb.WriteString("\n")
	}
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s x%d = %s\n", it.Service, it.Quantity, payment.FormatIDR(it.Price*int64(it.Quantity)))
	}
	fmt.Fprintf(&sb, "Total: %s", payment.FormatIDR(total))
	return sb.String()
}

// PaymentText renders a completed-payment alert.
func PaymentText(w payment.Webhook) string {
	return fmt.Sprintf("✅ Pembayaran %s diterima: %s via %s", w.OrderID, payment.FormatIDR(w.Amount), w.PaymentMethod)
}
