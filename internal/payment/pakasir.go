// Package payment builds the outbound checkout handoff: hosted payment page
// URLs on the Pakasir gateway, the WhatsApp confirmation link, and parsing
// of the gateway's completion webhook. It never talks to the gateway itself.
package payment

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public Pakasir host.
const DefaultBaseURL = "https://app.pakasir.com"

// Gateway identifies a Pakasir project.
type Gateway struct {
	BaseURL string
	Slug    string
}

// Options tune the hosted payment page.
type Options struct {
	// RedirectURL is where the gateway sends the buyer afterwards.
	RedirectURL string
	// QRISOnly hides every method except QRIS.
	QRISOnly bool
}

// PayURL returns <base>/pay/<slug>/<amount>?order_id=<id>[&redirect=..][&qris_only=1].
func (g Gateway) PayURL(amount int64, orderID string, opt Options) string {
	u := g.link("pay", amount, orderID, opt.RedirectURL)
	if opt.QRISOnly {
		u += "&qris_only=1"
	}
	return u
}

// PayPalURL returns <base>/paypal/<slug>/<amount>?order_id=<id>[&redirect=..].
func (g Gateway) PayPalURL(amount int64, orderID, redirectURL string) string {
	return g.link("paypal", amount, orderID, redirectURL)
}

func (g Gateway) link(kind string, amount int64, orderID, redirect string) string {
	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("/")
	sb.WriteString(kind)
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(g.Slug))
	sb.WriteString("/")
	sb.WriteString(strconv.FormatInt(amount, 10))
	sb.WriteString("?order_id=")
	sb.WriteString(escapeComponent(orderID))
	if redirect != "" {
		sb.WriteString("&redirect=")
		sb.WriteString(escapeComponent(redirect))
	}
	return sb.String()
}

// escapeComponent percent-encodes s for use inside a query value, encoding
// spaces as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
