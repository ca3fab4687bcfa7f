package payment

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

var idr = message.NewPrinter(language.Indonesian)

// FormatIDR renders n with Indonesian digit grouping, e.g. "Rp 45.000".
func FormatIDR(n int64) string {
	return "Rp " + idr.Sprintf("%d", n)
}

// WhatsAppMessage is the order confirmation the buyer sends to the admin.
// The order id line is left blank when orderID is empty.
func WhatsAppMessage(items []domain.CartItem, total int64, orderID string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "📦 "+it.Service+" x"+strconv.Itoa(it.Quantity))
	}
	idLine := ""
	if orderID != "" {
		idLine = "🆔 Order ID: " + orderID
	}

	var sb strings.Builder
	sb.WriteString("Halo Admin ALFA Hosting! 👋\n\n")
	sb.WriteString("Saya ingin konfirmasi pesanan:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\n💰 Total: ")
	sb.WriteString(FormatIDR(total))
	sb.WriteString("\n")
	sb.WriteString(idLine)
	sb.WriteString("\n\nMohon diproses ya. Terima kasih! 🙏")
	return sb.String()
}

// WhatsAppURL returns a wa.me link that opens a chat with phone prefilled
// with the confirmation message.
func WhatsAppURL(phone string, items []domain.CartItem, total int64, orderID string) string {
	return "https://wa.me/" + phone + "?text=" + escapeComponent(WhatsAppMessage(items, total, orderID))
}
