package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != StoreSQL || cfg.Store.DBDriver != "sqlite" || cfg.Store.DBPath != "storefront.db" {
		t.Fatalf("store defaults unexpected: %+v", cfg.Store)
	}
	g := cfg.Gate
	if g.MaxRequests != 10 || g.Window != time.Minute || g.Block != 5*time.Minute || g.VisitHistoryCap != 100 || g.SuspiciousVisits != 50 {
		t.Fatalf("gate defaults unexpected: %+v", g)
	}
	if cfg.Payment.Slug != "alfahosting" || cfg.Payment.WhatsAppPhone != "6282226769163" || cfg.Payment.WhatsAppDelay != time.Second {
		t.Fatalf("payment defaults unexpected: %+v", cfg.Payment)
	}
	if cfg.Chat.Model != "gpt-3.5-turbo" || cfg.Chat.APIKey != "" {
		t.Fatalf("chat defaults unexpected: %+v", cfg.Chat)
	}
	if cfg.OrderIDPrefix != "ALFA" || cfg.NotifyEnabled() {
		t.Fatalf("misc defaults unexpected: %+v", cfg)
	}
	if cfg.Location().String() != "Asia/Jakarta" {
		t.Fatalf("location = %v", cfg.Location())
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/")

	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("STORE_DRIVER", "REDIS")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("GATE_MAX_REQUESTS", "3")
	t.Setenv("GATE_BLOCK", "30s")
	t.Setenv("ADMIN_SESSION_KEY", strings.Repeat("k", 32))
	t.Setenv("PAKASIR_BASE_URL", "https://pay.example/")
	t.Setenv("THRESHOLD", "0.5")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("ORDER_ID_PREFIX", "shop")
	t.Setenv("TIMEZONE", "UTC")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if cfg.Store.Driver != StoreRedis || cfg.Store.RedisAddr != "cache:6379" || cfg.Store.RedisDB != 2 {
		t.Fatalf("store unexpected: %+v", cfg.Store)
	}
	if cfg.Gate.MaxRequests != 3 || cfg.Gate.Block != 30*time.Second {
		t.Fatalf("gate unexpected: %+v", cfg.Gate)
	}
	if cfg.Payment.BaseURL != "https://pay.example" {
		t.Fatalf("base url not trimmed: %q", cfg.Payment.BaseURL)
	}
	if cfg.Chat.Threshold != 0.5 {
		t.Fatalf("threshold unexpected: %v", cfg.Chat.Threshold)
	}
	if !cfg.NotifyEnabled() || cfg.Notify.TelegramChatID != -100123 {
		t.Fatalf("notify unexpected: %+v", cfg.Notify)
	}
	if cfg.OrderIDPrefix != "SHOP" || cfg.Location() != time.UTC {
		t.Fatalf("prefix/location unexpected: %q %v", cfg.OrderIDPrefix, cfg.Location())
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"max body bytes", map[string]string{"MAX_BODY_BYTES": "-1"}, "MAX_BODY_BYTES"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"unknown store driver", map[string]string{"STORE_DRIVER": "etcd"}, "STORE_DRIVER"},
		{"unknown db driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgresql"}, "DATABASE_URL"},
		{"redis without addr", map[string]string{"STORE_DRIVER": "redis", "REDIS_ADDR": " "}, "REDIS_ADDR"},
		{"gate window", map[string]string{"GATE_WINDOW": "0s"}, "GATE_WINDOW"},
		{"visit cap", map[string]string{"VISIT_HISTORY_CAP": "0"}, "VISIT_HISTORY_CAP"},
		{"short session key", map[string]string{"ADMIN_SESSION_KEY": "short"}, "ADMIN_SESSION_KEY"},
		{"whatsapp delay", map[string]string{"WHATSAPP_DELAY": "-1s"}, "WHATSAPP_DELAY"},
		{"threshold out of range", map[string]string{"THRESHOLD": "1.5"}, "THRESHOLD"},
		{"chat max prompt", map[string]string{"CHAT_MAX_PROMPT": "0"}, "CHAT_MAX_PROMPT"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"otel sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_MemoryStoreNeedsNoPaths(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_PATH", " ")
	if _, err := Load(); err != nil {
		t.Fatalf("memory store should ignore DB_PATH: %v", err)
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	if got := (Config{Timezone: "Nope/Nowhere"}).Location(); got != time.UTC {
		t.Fatalf("got %v", got)
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_numbersAndDurations(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}
	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I64_VALID", " -1001234567890 ")
	if getint64("I64_VALID", 0) != -1001234567890 {
		t.Fatalf("getint64 parse failed")
	}
	t.Setenv("I64_BAD", "x")
	if getint64("I64_BAD", 9) != 9 {
		t.Fatalf("getint64 default on bad parse failed")
	}
	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: got %#v", got)
	}
	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "DB_DRIVER", "DATABASE_URL", "OPENAI_API_KEY", "TELEGRAM_BOT_TOKEN", "TIMEZONE", "ADMIN_SESSION_KEY"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
