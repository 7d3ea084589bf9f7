package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestRateLimiter_Allow verifies the bucket empties and refills.
func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests refused")
	}
	if rl.Allow("a") {
		t.Error("third request within a minute allowed")
	}
	if !rl.Allow("b") {
		t.Error("another client was limited")
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("bucket did not refill")
	}
}

// TestRateLimiter_Forget verifies idle clients are dropped.
func TestRateLimiter_Forget(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(10 * time.Minute)
	rl.Forget(5 * time.Minute)
	if len(rl.visitors) != 0 {
		t.Errorf("visitors = %d, want 0", len(rl.visitors))
	}
}

// TestRateLimit_OnlyLimitsListedPosts verifies GETs and other paths pass.
func TestRateLimit_OnlyLimitsListedPosts(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	handler := RateLimit(rl, "/login")(okHandler(http.StatusOK))

	post := func(path string) int {
		req := httptest.NewRequest("POST", path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if post("/login") != http.StatusOK {
		t.Fatal("first login refused")
	}
	if code := post("/login"); code != http.StatusTooManyRequests {
		t.Errorf("second login = %d, want 429", code)
	}
	if post("/addPart") != http.StatusOK {
		t.Error("unlisted path was limited")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/login", nil))
	if rr.Code != http.StatusOK {
		t.Error("GET was limited")
	}
}

// TestSecurityHeaders verifies the hardening headers.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'") {
		t.Errorf("CSP = %q", rr.Header().Get("Content-Security-Policy"))
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", rr.Header())
	}
}

// TestCSRF_RejectsPostWithoutToken verifies unsafe requests need a token.
func TestCSRF_RejectsPostWithoutToken(t *testing.T) {
	var reached bool
	handler := CSRF([]byte(strings.Repeat("c", 32)), false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/addPart", strings.NewReader("part_email=a@b.c")))
	if rr.Code != http.StatusForbidden || reached {
		t.Errorf("status %d, reached %v", rr.Code, reached)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/addPart", nil))
	if rr.Code != http.StatusOK || !reached {
		t.Errorf("GET: status %d, reached %v", rr.Code, reached)
	}
}

// TestDeadline verifies the request context carries a deadline.
func TestDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := Deadline(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !ok || time.Until(deadline) > time.Second {
		t.Errorf("deadline = %v, %v", deadline, ok)
	}
}

// TestChain_Order verifies the first middleware is outermost.
func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(http.StatusOK), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("order = %v", order)
	}
}
