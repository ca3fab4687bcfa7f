// Package config loads the storefront service settings from environment
// variables, applies defaults and validates the result. Groups cover the
// HTTP server, storage backends, the abuse gate, the admin session, the
// checkout handoff, the chat assistant, notifications and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on minimal images
)

// Storage drivers.
const (
	StoreSQL    = "sql"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines response hardening such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig selects where storefront state lives.
type StoreConfig struct {
	Driver string // STORE_DRIVER: sql|redis|memory

	DBDriver string // DB_DRIVER: sqlite|postgres
	DBPath   string // DB_PATH, SQLite file
	DBDSN    string // DATABASE_URL, Postgres DSN

	RedisAddr     string
	RedisDB       int
	RedisPassword string
	RedisPrefix   string
}

// GateConfig tunes the per-profile request gate and visit tracking.
type GateConfig struct {
	MaxRequests      int
	Window           time.Duration
	Block            time.Duration
	VisitHistoryCap  int
	SuspiciousVisits int
}

// AdminConfig holds the admin password hash and the cookie keys.
type AdminConfig struct {
	PasswordHash  string // ADMIN_PASSWORD_HASH, sha256 hex or bcrypt
	SessionKey    string // ADMIN_SESSION_KEY, HMAC key for the session cookie
	SecureCookies bool
}

// PaymentConfig configures the outbound checkout handoff.
type PaymentConfig struct {
	BaseURL       string
	Slug          string
	RedirectURL   string
	WhatsAppPhone string
	WhatsAppDelay time.Duration
}

// ChatConfig configures the assistant.
type ChatConfig struct {
	APIKey    string // OPENAI_API_KEY; empty disables the model
	BaseURL   string // OPENAI_BASE_URL
	Model     string
	Threshold float64 // catalog match threshold [0,1]
	MaxPrompt int     // rune cap on a user message
}

// NotifyConfig enables Telegram order notifications when both are set.
type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID int64
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// Edge rate limiting (token bucket per profile or IP)
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	// Checkout replay window for Idempotency-Key
	IdempotencyTTL time.Duration

	Store         StoreConfig
	Gate          GateConfig
	Admin         AdminConfig
	Payment       PaymentConfig
	Chat          ChatConfig
	Notify        NotifyConfig
	OrderIDPrefix string
	Timezone      string // ledger dates, e.g. Asia/Jakarta

	// Housekeeping cron specs
	PurgeSchedule   string
	SummarySchedule string

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Store: StoreConfig{
			Driver:        strings.ToLower(getenv("STORE_DRIVER", StoreSQL)),
			DBDriver:      strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DBPath:        getenv("DB_PATH", "storefront.db"),
			DBDSN:         getenv("DATABASE_URL", ""),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisDB:       getint("REDIS_DB", 0),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisPrefix:   getenv("REDIS_PREFIX", "alfa:"),
		},
		Gate: GateConfig{
			MaxRequests:      getint("GATE_MAX_REQUESTS", 10),
			Window:           getdur("GATE_WINDOW", time.Minute),
			Block:            getdur("GATE_BLOCK", 5*time.Minute),
			VisitHistoryCap:  getint("VISIT_HISTORY_CAP", 100),
			SuspiciousVisits: getint("SUSPICIOUS_VISITS", 50),
		},
		Admin: AdminConfig{
			PasswordHash:  getenv("ADMIN_PASSWORD_HASH", ""),
			SessionKey:    getenv("ADMIN_SESSION_KEY", ""),
			SecureCookies: getbool("ADMIN_SECURE_COOKIES", false),
		},
		Payment: PaymentConfig{
			BaseURL:       strings.TrimRight(getenv("PAKASIR_BASE_URL", "https://app.pakasir.com"), "/"),
			Slug:          getenv("PAKASIR_SLUG", "alfahosting"),
			RedirectURL:   getenv("PAKASIR_REDIRECT_URL", ""),
			WhatsAppPhone: getenv("WHATSAPP_PHONE", "6282226769163"),
			WhatsAppDelay: getdur("WHATSAPP_DELAY", time.Second),
		},
		Chat: ChatConfig{
			APIKey:    getenv("OPENAI_API_KEY", ""),
			BaseURL:   getenv("OPENAI_BASE_URL", ""),
			Model:     getenv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Threshold: getfloat("THRESHOLD", 0.05),
			MaxPrompt: getint("CHAT_MAX_PROMPT", 1000),
		},
		Notify: NotifyConfig{
			TelegramToken:  getenv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID: getint64("TELEGRAM_CHAT_ID", 0),
		},
		OrderIDPrefix: strings.ToUpper(getenv("ORDER_ID_PREFIX", "ALFA")),
		Timezone:      getenv("TIMEZONE", "Asia/Jakarta"),

		PurgeSchedule:   getenv("PURGE_SCHEDULE", "@hourly"),
		SummarySchedule: getenv("SUMMARY_SCHEDULE", "0 21 * * *"),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "alfa-storefront"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Store.DBDriver == "postgresql" {
		cfg.Store.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if err := cfg.Store.validate(); err != nil {
		return cfg, err
	}
	if cfg.Gate.MaxRequests < 1 || cfg.Gate.Window <= 0 || cfg.Gate.Block <= 0 {
		return cfg, errors.New("GATE_MAX_REQUESTS, GATE_WINDOW and GATE_BLOCK must be positive")
	}
	if cfg.Gate.VisitHistoryCap < 1 || cfg.Gate.SuspiciousVisits < 1 {
		return cfg, errors.New("VISIT_HISTORY_CAP and SUSPICIOUS_VISITS must be >= 1")
	}
	if cfg.Admin.SessionKey != "" && len(cfg.Admin.SessionKey) < 32 {
		return cfg, errors.New("ADMIN_SESSION_KEY must be at least 32 bytes")
	}
	if strings.TrimSpace(cfg.Payment.Slug) == "" {
		return cfg, errors.New("PAKASIR_SLUG must not be empty")
	}
	if strings.TrimSpace(cfg.Payment.WhatsAppPhone) == "" {
		return cfg, errors.New("WHATSAPP_PHONE must not be empty")
	}
	if cfg.Payment.WhatsAppDelay < 0 {
		return cfg, errors.New("WHATSAPP_DELAY must be >= 0")
	}
	if cfg.Chat.Threshold < 0 || cfg.Chat.Threshold > 1 {
		return cfg, errors.New("THRESHOLD must be between 0 and 1")
	}
	if cfg.Chat.MaxPrompt < 1 {
		return cfg, errors.New("CHAT_MAX_PROMPT must be >= 1")
	}
	if strings.TrimSpace(cfg.OrderIDPrefix) == "" {
		return cfg, errors.New("ORDER_ID_PREFIX must not be empty")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func (s StoreConfig) validate() error {
	switch s.Driver {
	case StoreSQL:
		switch s.DBDriver {
		case "sqlite":
			if strings.TrimSpace(s.DBPath) == "" {
				return errors.New("DB_PATH must not be empty")
			}
		case "postgres":
			if strings.TrimSpace(s.DBDSN) == "" {
				return errors.New("DATABASE_URL is required for DB_DRIVER=postgres")
			}
		default:
			return errors.New("DB_DRIVER must be one of: sqlite, postgres")
		}
	case StoreRedis:
		if strings.TrimSpace(s.RedisAddr) == "" {
			return errors.New("REDIS_ADDR must not be empty")
		}
	case StoreMemory:
	default:
		return errors.New("STORE_DRIVER must be one of: sql, redis, memory")
	}
	return nil
}

// NotifyEnabled reports whether Telegram notifications are configured.
func (c Config) NotifyEnabled() bool {
	return c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != 0
}

// Location returns the configured ledger time zone, or UTC if it fails to load.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
