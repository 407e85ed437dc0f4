package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nesrien2002/livekit-voice-agent/internal/log"
)

func TestRateLimiter_ExhaustsBurst(t *testing.T) {
	rl := newRateLimiter(0, 2)

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("burst tokens rejected")
	}
	if rl.allow("10.0.0.1") {
		t.Error("request allowed past burst with zero refill")
	}

	// Other IPs keep their own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("fresh IP rejected")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(0, 1)
	handler := rateLimitMiddleware(rl, false, log.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4444"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set on 429")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remote     string
		headers    map[string]string
		want       string
	}{
		{"direct", false, "203.0.113.5:1234", nil, "203.0.113.5"},
		{"spoofed header ignored", false, "203.0.113.5:1234",
			map[string]string{"X-Real-IP": "10.0.0.9"}, "203.0.113.5"},
		{"x-real-ip", true, "127.0.0.1:80",
			map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"x-forwarded-for first hop", true, "127.0.0.1:80",
			map[string]string{"X-Forwarded-For": "198.51.100.8, 10.0.0.1"}, "198.51.100.8"},
		{"invalid header falls back", true, "203.0.113.6:1234",
			map[string]string{"X-Real-IP": "not-an-ip"}, "203.0.113.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
