package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taysluxe/tayai/internal/log"
)

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(log.NewNop())(panicky)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestIdentityMiddleware(t *testing.T) {
	var gotID, gotTier string
	var gotOK bool
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID, gotTier, gotOK = userFromContext(r.Context())
	})
	handler := identityMiddleware()(inner)

	t.Run("with headers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("X-User-ID", "u1")
		req.Header.Set("X-User-Tier", "Premium")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !gotOK || gotID != "u1" {
			t.Errorf("id = %q, ok = %v", gotID, gotOK)
		}
		if gotTier != "premium" {
			t.Errorf("tier = %q, want lowercased premium", gotTier)
		}
	})

	t.Run("tier defaults to basic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("X-User-ID", "u2")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if gotTier != "basic" {
			t.Errorf("tier = %q, want basic", gotTier)
		}
	})

	t.Run("without headers", func(t *testing.T) {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
		if gotOK {
			t.Error("identity should be absent")
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware([]string{"http://localhost:3000"})(inner)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("Allow-Origin should be absent for unknown origin")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/x", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"direct", "192.0.2.1:5000", "", "", false, "192.0.2.1"},
		{"proxy headers ignored when untrusted", "192.0.2.1:5000", "10.0.0.9", "", false, "192.0.2.1"},
		{"x-real-ip preferred", "192.0.2.1:5000", "10.0.0.9", "10.0.0.8", true, "10.0.0.9"},
		{"x-forwarded-for first hop", "192.0.2.1:5000", "", "10.0.0.8, 10.0.0.7", true, "10.0.0.8"},
		{"invalid header falls through", "192.0.2.1:5000", "not-an-ip", "", true, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/x", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(0.001, 2)

	if !rl.allow("1.2.3.4") {
		t.Error("first request should pass")
	}
	if !rl.allow("1.2.3.4") {
		t.Error("second request within burst should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("different IP has its own bucket")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rateLimitMiddleware(rl, false, log.NewNop())(inner)

	req := httptest.NewRequest("GET", "/x", nil)
	req.RemoteAddr = "192.0.2.50:1000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}
