// Package services – ChatService
//
// ChatService answers storefront questions. With a completion client it asks
// the model once with a fixed system prompt about the business; any failure
// or empty answer falls back to local answers so the caller always gets a
// reply. Local answers are, in order: keyword rules with canned replies, a
// catalog lookup that describes the closest product, and a help menu.
package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/payment"
	"github.com/tbourn/go-storefront-backend/internal/search"
	"github.com/tbourn/go-storefront-backend/internal/store"
)

// Reply sources.
const (
	SourceLLM      = "llm"
	SourceRules    = "rules"
	SourceCatalog  = "catalog"
	SourceFallback = "fallback"
)

// Chat defaults.
const (
	DefaultChatModel       = openai.GPT3Dot5Turbo
	DefaultChatMaxTokens   = 300
	DefaultChatTemperature = 0.7
	defaultMaxPromptRunes  = 1000
)

// SystemPrompt describes the business to the model.
const SystemPrompt = `Kamu adalah Customer Service AI dari ALFA Hosting, sebuah penyedia layanan hosting VPS dan Panel Pterodactyl di Indonesia.

Informasi Produk:
- VPS Cloud: Mulai dari Rp 15.000 (1GB RAM) hingga Rp 70.000 (16GB RAM)
- Panel Pterodactyl: Mulai dari Rp 1.000 (1GB RAM) hingga Rp 35.000 (Partner Panel)
- Jasa: Install Panel (Rp 10.000), Bash Autoscript (Rp 15.000), Fix Error (Rp 7.000), Rename SC (Rp 20.000), Pembuatan Website (Rp 30.000)

Kontak:
- WhatsApp: +62 822-2676-9163
- Email: sanzbot938@gmail.com
- Lokasi: Jawa Tengah, Blora, Randublatung

Pembayaran: QRIS, DANA, GoPay, OVO, Transfer Bank

Jawablah dengan:
1. Sopan dan ramah
2. Singkat dan jelas
3. Bahasa Indonesia yang baik
4. Berikan solusi yang membantu

Jika ada pertanyaan teknis kompleks, arahkan untuk menghubungi admin via WhatsApp.`

// Completer is the subset of *openai.Client used here.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Reply is an answer and where it came from.
type Reply struct {
	Text   string `json:"reply"`
	Source string `json:"source"`
}

// ChatService produces replies.
type ChatService struct {
	// Client is optional; nil means local answers only.
	Client      Completer
	Model       string
	MaxTokens   int
	Temperature float32

	// Store and Repo feed the catalog lookup.
	Store store.Store
	Repo  CatalogRepo
	// Threshold is the minimum catalog match score.
	Threshold float64

	MaxPromptRunes int
}

// NewChatService constructs a ChatService with the model defaults.
func NewChatService(client Completer, st store.Store, r CatalogRepo) *ChatService {
	return &ChatService{
		Client:         client,
		Model:          DefaultChatModel,
		MaxTokens:      DefaultChatMaxTokens,
		Temperature:    DefaultChatTemperature,
		Store:          st,
		Repo:           r,
		Threshold:      0.05,
		MaxPromptRunes: defaultMaxPromptRunes,
	}
}

// Reply answers message. Only an empty or oversized message is an error.
func (s *ChatService) Reply(ctx context.Context, message string) (Reply, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Reply", trace.WithAttributes(attribute.Bool("llm.enabled", s.Client != nil)))
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrValidation
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(message) > s.MaxPromptRunes {
		return Reply{}, ErrValidation
	}

	if s.Client != nil {
		if text, ok := s.complete(ctx, message); ok {
			span.SetAttributes(attribute.String("reply.source", SourceLLM))
			return Reply{Text: text, Source: SourceLLM}, nil
		}
	}
	r := s.local(ctx, message)
	span.SetAttributes(attribute.String("reply.source", r.Source))
	return r, nil
}

func (s *ChatService) complete(ctx context.Context, message string) (string, bool) {
	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("chat completion failed; using local reply")
		return "", false
	}
	if len(resp.Choices) == 0 {
		return "", false
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return text, text != ""
}

func (s *ChatService) local(ctx context.Context, message string) Reply {
	if text, ok := RuleReply(message); ok {
		return Reply{Text: text, Source: SourceRules}
	}
	if s.Repo != nil {
		products, err := s.Repo.ListProducts(ctx, s.Store)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("catalog unavailable for chat")
		} else if p, ok := s.lookup(products, message); ok {
			return Reply{Text: ProductCard(p), Source: SourceCatalog}
		}
	}
	return Reply{Text: helpMenu, Source: SourceFallback}
}

func (s *ChatService) lookup(products []domain.Product, message string) (domain.Product, bool) {
	res := search.FromProducts(products, search.WithMinScore(s.Threshold)).TopK(message, 1)
	if len(res) == 0 {
		return domain.Product{}, false
	}
	for _, p := range products {
		if p.ID == res[0].ID {
			return p, true
		}
	}
	return domain.Product{}, false
}

// ProductCard renders p for a chat reply.
func ProductCard(p domain.Product) string {
	var sb strings.Builder
	sb.WriteString("📦 ")
	sb.WriteString(p.Name)
	sb.WriteString("\n💰 ")
	sb.WriteString(payment.FormatIDR(p.Price))
	if p.Category.StockBearing() {
		if p.StockValue() > 0 {
			sb.WriteString("\n✅ Stok: ")
			sb.WriteString(strconv.Itoa(p.StockValue()))
		} else {
			sb.WriteString("\n❌ Stok habis")
		}
	}
	sb.WriteString("\n\n")
	sb.WriteString(p.Desc)
	sb.WriteString("\n\nSilakan tambahkan ke keranjang di katalog kami!")
	return sb.String()
}

type rule struct {
	match func(msg string, words map[string]bool) bool
	reply string
}

func anyOf(subs ...string) func(string, map[string]bool) bool {
	return func(msg string, _ map[string]bool) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

func anyWord(ws ...string) func(string, map[string]bool) bool {
	return func(_ string, words map[string]bool) bool {
		for _, w := range ws {
			if words[w] {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{anyOf("harga", "biaya", "price"),
		"💰 Berikut daftar harga kami:\n\n🖥️ VPS: Rp 15.000 - Rp 70.000\n📊 Panel: Rp 1.000 - Rp 35.000\n🛠️ Jasa: Rp 7.000 - Rp 30.000\n\nCek website untuk detail lengkap ya!"},
	{func(msg string, _ map[string]bool) bool { return strings.Contains(msg, "cara") && strings.Contains(msg, "beli") },
		"🛒 Cara pembelian:\n1. Pilih produk di website\n2. Klik 'Tambah ke Keranjang'\n3. Lanjut ke pembayaran\n4. Pilih metode pembayaran\n5. Konfirmasi via WhatsApp\n\nMudah kan? 😊"},
	{anyOf("pembayaran", "bayar", "payment"),
		"💳 Kami menerima pembayaran via:\n• QRIS (Semua e-wallet)\n• DANA\n• GoPay\n• OVO\n• Transfer Bank\n\nSemua transaksi aman dan terpercaya!"},
	{anyOf("panel", "pterodactyl"),
		"📊 Panel Pterodactyl kami tersedia mulai Rp 1.000 saja!\n\n✨ Fitur:\n• Server Indonesia & Singapore\n• Resource fleksibel\n• Support 24/7\n• Aktivasi instan\n\nCek katalog untuk pilihan lengkap!"},
	{anyOf("vps", "server"),
		"🖥️ VPS Cloud kami powerful dan terjangkau!\n\n✨ Spesifikasi:\n• NVMe SSD Storage\n• High Performance CPU\n• Bandwidth besar\n• Full Root Access\n• Garansi Uptime\n\nMulai dari Rp 15.000/bulan!"},
	{anyOf("admin", "owner", "kontak"),
		"📞 Hubungi kami:\n\n• WhatsApp: +62 822-2676-9163\n• Email: sanzbot938@gmail.com\n• Lokasi: Jawa Tengah, Blora\n\nAdmin siap bantu 24/7! 🚀"},
	// Greeting words match whole words only; "p" as a substring would
	// swallow nearly every message.
	{anyWord("halo", "hai", "hi", "p"),
		"Halo! 👋 Selamat datang di ALFA Hosting!\n\nSaya AI Assistant yang siap membantu Anda. Ada yang bisa saya bantu tentang layanan VPS, Panel, atau Jasa kami?"},
	{anyOf("terima kasih", "thanks", "makasih"),
		"Sama-sama! 😊 Senang bisa membantu. Jika ada pertanyaan lain, jangan ragu untuk bertanya ya!"},
	{anyOf("stok", "stock", "tersedia"),
		"📦 Stok kami selalu terupdate di website. Jika produk bisa ditambahkan ke keranjang, berarti stok masih tersedia.\n\nUntuk info real-time, silakan cek langsung di katalog produk kami!"},
}

const helpMenu = "Maaf, saya kurang mengerti pertanyaan Anda. 🤔\n\nAnda bisa bertanya tentang:\n• Harga produk\n• Cara pembelian\n• Metode pembayaran\n• Spesifikasi VPS/Panel\n• Kontak admin\n\nAtau langsung hubungi WhatsApp: +62 822-2676-9163"

var chatWordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// RuleReply returns the canned reply of the first matching keyword rule.
func RuleReply(message string) (string, bool) {
	msg := strings.ToLower(message)
	words := map[string]bool{}
	for _, w := range chatWordRE.FindAllString(msg, -1) {
		words[w] = true
	}
	for _, r := range rules {
		if r.match(msg, words) {
			return r.reply, true
		}
	}
	return "", false
}

// HelpMenu is the reply used when nothing else matches.
func HelpMenu() string { return helpMenu }
