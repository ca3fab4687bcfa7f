package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/security"
	"github.com/tbourn/go-storefront-backend/internal/services"
)

func TestChat_RulesAndValidation(t *testing.T) {
	env := newEnv(t, wideLimits())

	w := env.do(t, http.MethodPost, "/chat", "", ChatRequest{Message: "halo"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat -> %d %s", w.Code, w.Body.String())
	}
	if r := decode[services.Reply](t, w); r.Source != services.SourceRules || r.Text == "" {
		t.Fatalf("reply = %+v", r)
	}
	if w := env.do(t, http.MethodPost, "/chat", "", ChatRequest{Message: "   "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank -> %d", w.Code)
	}
}

func TestRecordVisit_TracksAndClassifies(t *testing.T) {
	env := newEnv(t, wideLimits())

	human := VisitRequest{Signals: security.Signals{
		UserAgent: "Mozilla/5.0", SessionStorage: true, LocalStorage: true, OuterWidth: 1280, OuterHeight: 800,
	}}
	first := decode[VisitResponse](t, env.do(t, http.MethodPost, "/visits", "v1", human))
	if first.IsBot || !strings.HasPrefix(first.VisitorID, "visitor_") || len(first.Reasons) != 0 {
		t.Fatalf("first visit = %+v", first)
	}
	second := decode[VisitResponse](t, env.do(t, http.MethodPost, "/visits", "v1", human))
	if second.VisitorID != first.VisitorID {
		t.Fatalf("visitor id rotated: %q -> %q", first.VisitorID, second.VisitorID)
	}

	bot := decode[VisitResponse](t, env.do(t, http.MethodPost, "/visits", "v2", VisitRequest{Signals: security.Signals{
		UserAgent: "HeadlessChrome", Webdriver: true,
	}}))
	if !bot.IsBot || len(bot.Reasons) < 2 {
		t.Fatalf("bot verdict = %+v", bot)
	}

	cookie := env.adminCookie(t)
	ov := decode[security.Overview](t, env.do(t, http.MethodGet, "/admin/security", "", nil, "Cookie", cookie))
	if ov.TotalVisits != 3 || ov.Suspicious {
		t.Fatalf("overview = %+v", ov)
	}
}

func TestPaymentWebhook(t *testing.T) {
	env := newEnv(t, wideLimits())
	env.do(t, http.MethodPost, "/cart/items", "p1", AddToCartRequest{ProductID: "vps1"})
	env.do(t, http.MethodPost, "/cart/items", "p1", AddToCartRequest{ProductID: "vps1"})
	order := decode[CheckoutResponse](t, env.do(t, http.MethodPost, "/checkout", "p1",
		CheckoutRequest{Name: "Budi", Phone: "0812", Method: "pakasir"}))
	env.notifier.wait(t) // order notification

	paid := payment.Webhook{Amount: order.Total, OrderID: order.OrderID, Project: "alfahosting", Status: payment.StatusCompleted, PaymentMethod: "qris"}

	rejects := map[string]func(*payment.Webhook){
		"wrong project":   func(w *payment.Webhook) { w.Project = "someone-else" },
		"zero amount":     func(w *payment.Webhook) { w.Amount = 0 },
		"forged order id": func(w *payment.Webhook) { w.OrderID = "ALFA-1" },
		"amount mismatch": func(w *payment.Webhook) { w.Amount = order.Total - 1 },
	}
	for name, mutate := range rejects {
		bad := paid
		mutate(&bad)
		if w := env.do(t, http.MethodPost, "/payments/webhook", "", bad); w.Code != http.StatusBadRequest {
			t.Fatalf("%s -> %d %s", name, w.Code, w.Body.String())
		}
	}

	if w := env.do(t, http.MethodPost, "/payments/webhook", "", paid); w.Code != http.StatusOK {
		t.Fatalf("valid webhook -> %d %s", w.Code, w.Body.String())
	}
	if text := env.notifier.wait(t); !strings.Contains(text, order.OrderID) {
		t.Fatalf("notification = %q", text)
	}
	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.texts) != 2 {
		t.Fatalf("rejected webhooks notified: %q", env.notifier.texts)
	}
}
