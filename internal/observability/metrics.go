package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cart add outcomes.
const (
	CartAdded        = "added"
	CartOutOfStock   = "out_of_stock"
	CartStockLimited = "stock_limit"
)

// Testimonial submission outcomes.
const (
	TestimonialAccepted    = "accepted"
	TestimonialSpam        = "spam"
	TestimonialRejected    = "invalid"
	TestimonialRateLimited = "rate_limited"
)

var (
	ordersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_total",
		Help: "Checkouts processed.",
	})
	orderRevenue = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_revenue_idr_total",
		Help: "Sum of order totals in IDR.",
	})
	cartAdds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_adds_total",
		Help: "Add-to-cart attempts by result.",
	}, []string{"result"})
	gateBlocks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_gate_blocks_total",
		Help: "Actions rejected by the per-profile rate gate.",
	})
	botVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_bot_verdicts_total",
		Help: "Visit classifications.",
	}, []string{"bot"})
	testimonials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_testimonials_total",
		Help: "Testimonial submissions by outcome.",
	}, []string{"outcome"})
	chatReplies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_chat_replies_total",
		Help: "Chat replies by source.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(ordersTotal, orderRevenue, cartAdds, gateBlocks, botVerdicts, testimonials, chatReplies)
}

// OrderPlaced records a processed checkout.
func OrderPlaced(total int64) {
	ordersTotal.Inc()
	if total > 0 {
		orderRevenue.Add(float64(total))
	}
}

// CartAdd records an add-to-cart attempt.
func CartAdd(result string) { cartAdds.WithLabelValues(result).Inc() }

// GateBlocked records a rate gate rejection.
func GateBlocked() { gateBlocks.Inc() }

// BotVerdict records a visit classification.
func BotVerdict(isBot bool) {
	if isBot {
		botVerdicts.WithLabelValues("true").Inc()
		return
	}
	botVerdicts.WithLabelValues("false").Inc()
}

// TestimonialSubmitted records a submission outcome.
func TestimonialSubmitted(outcome string) { testimonials.WithLabelValues(outcome).Inc() }

// ChatReply records where a chat answer came from.
func ChatReply(source string) { chatReplies.WithLabelValues(source).Inc() }
