package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByProfileOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c.Request = req

	if key := KeyByProfileOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", key)
	}
	c.Set(profileKey, "p1")
	if key := KeyByProfileOrIP()(c); key != "profile:p1" {
		t.Fatalf("profile key = %q", key)
	}
}

func TestNewRateLimiter_BurstCoercion_AndReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyByProfileOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d", rl.burst)
	}
	lim := rl.getVisitor("k1")
	if rl.getVisitor("k1") != lim {
		t.Fatalf("expected limiter reuse")
	}
}

func TestRateLimiter_getVisitor_SweepsIdle(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByProfileOrIP())
	rl.ttl = time.Nanosecond
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.lookups = 4999

	_ = rl.getVisitor("new")

	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("old visitor not evicted")
	}
	if _, ok := rl.visitors["new"]; !ok {
		t.Fatalf("new visitor missing")
	}
}

func TestRateLimiter_Handler_DenyThenBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1.0, 1, KeyByProfileOrIP())

	r := gin.New()
	r.Use(RequestID(), Profile(), rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request -> %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(requestIDHeader, "rid-2")
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusTooManyRequests || w2.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request -> %d retry=%q", w2.Code, w2.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(w2.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["code"] != "rate_limited" || body["request_id"] != "rid-2" {
		t.Fatalf("body = %v", body)
	}

	rb := gin.New()
	rb.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }, rl.Handler())
	rb.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	w3 := httptest.NewRecorder()
	rb.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w3.Code != http.StatusOK {
		t.Fatalf("bypass -> %d", w3.Code)
	}
}
