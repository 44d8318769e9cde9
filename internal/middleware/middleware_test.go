package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// --- RequestID ---

func TestRequestID_AddsHeader(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	id := rr.Header().Get("X-Request-ID")
	if len(id) != 36 {
		t.Fatalf("expected UUID-length X-Request-ID, got %q (len %d)", id, len(id))
	}
	if ctxID != id {
		t.Errorf("context id %q != header id %q", ctxID, id)
	}
}

func TestRequestID_ReusesValidIncomingID(t *testing.T) {
	handler := RequestID(okHandler)
	const incoming = "0b7c6b0e-3a4f-4b8e-9c61-0f6a2d8e1c11"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", incoming)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != incoming {
		t.Errorf("X-Request-ID = %q, want %q", got, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got == "<script>" {
		t.Error("malformed incoming id was echoed")
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	handler := RequestID(okHandler)

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, httptest.NewRequest(http.MethodGet, "/", nil))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr1.Header().Get("X-Request-ID") == rr2.Header().Get("X-Request-ID") {
		t.Fatal("expected unique X-Request-ID per request")
	}
}

// --- Logger ---

func TestLogger_PassesStatusThrough(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rr.Code)
	}
}

// --- CORS ---

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := CORS([]string{"http://localhost:5173"})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	expected := map[string]string{
		"Access-Control-Allow-Origin":  "http://localhost:5173",
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, X-Request-ID",
		"Access-Control-Max-Age":       "86400",
	}
	for header, want := range expected {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("header %s = %q, want %q", header, got, want)
		}
	}
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestCORS_ForeignOrigin(t *testing.T) {
	handler := CORS([]string{"http://localhost:5173"})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin should not be set, got %q", got)
	}
}

func TestCORS_PreflightOptions(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called on OPTIONS preflight")
	})

	handler := CORS([]string{"http://localhost:5173"})(inner)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", rr.Code)
	}
}

// --- SecurityHeaders ---

func TestSecurityHeaders_SetsAllHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range headers {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("header %s = %q, want %q", header, got, want)
		}
	}
	if csp := rr.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("CSP = %q", csp)
	}
}

// --- RateLimit ---

func TestRateLimit_BlocksRequestsOverLimit(t *testing.T) {
	handler := RateLimit(3, time.Minute)(okHandler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:9999"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d should be allowed, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if ra := rr.Header().Get("Retry-After"); ra != "60" {
		t.Errorf("Retry-After = %q", ra)
	}
}

func TestRateLimit_DifferentIPsTrackedSeparately(t *testing.T) {
	handler := RateLimit(1, time.Minute)(okHandler)

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "1.1.1.1:1111"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("first IP first request should be allowed, got %d", rr1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "2.2.2.2:2222"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Errorf("second IP should be allowed, got %d", rr2.Code)
	}
}

func TestRateLimit_RotatingForwardedForDoesNotBypass(t *testing.T) {
	handler := RateLimit(1, time.Minute)(okHandler)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:8080"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("request %d: expected %d, got %d", i+1, want, rr.Code)
		}
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two hits should pass")
	}
	if rl.allow("a") {
		t.Fatal("third hit inside the window should be rejected")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("hit after the window should pass")
	}
	if _, ok := rl.hits["b"]; ok {
		t.Error("unexpected key")
	}
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	rl := newRateLimiter(5, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("idle")
	now = now.Add(2 * time.Minute)
	rl.allow("active")

	if _, ok := rl.hits["idle"]; ok {
		t.Error("idle client was not pruned")
	}
	if len(rl.hits["active"]) != 1 {
		t.Errorf("active hits = %d", len(rl.hits["active"]))
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote, forwarded, want string
	}{
		{"10.0.0.1:9999", "", "10.0.0.1"},
		{"127.0.0.1:8080", "203.0.113.50, 10.0.0.1", "127.0.0.1"},
		{"203.0.113.9", "", "203.0.113.9"},
		{"[::1]:443", "", "::1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		if got := clientKey(req); got != tt.want {
			t.Errorf("clientKey(%q, %q) = %q, want %q", tt.remote, tt.forwarded, got, tt.want)
		}
	}
}
