package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskhive.org/internal/auth"
	"taskhive.org/internal/session"
	"taskhive.org/internal/task"
)

func TestExtractTokenPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	token, ok := extractToken(req)
	if !ok || token != "cookie-token" {
		t.Fatalf("expected cookie token, got %q ok=%v", token, ok)
	}
}

func TestExtractTokenBearerFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	token, ok := extractToken(req)
	if !ok || token != "header-token" {
		t.Fatalf("expected header token, got %q ok=%v", token, ok)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/", nil)
	if _, ok := extractToken(req); ok {
		t.Fatal("expected no token")
	}

	req = httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if _, ok := extractToken(req); ok {
		t.Fatal("non-bearer scheme must not yield a token")
	}
}

func TestPublicPathsBypassAuth(t *testing.T) {
	for _, path := range []string{"/users/signup", "/users/login", "/users/refresh", "/healthz", "/readyz", "/metrics", "/v1/info", "/"} {
		if !isPublicPath(path) {
			t.Fatalf("expected %s to be public", path)
		}
	}
	for _, path := range []string{"/users/", "/users/logout", "/tasks", "/tasks/stats"} {
		if isPublicPath(path) {
			t.Fatalf("expected %s to require auth", path)
		}
	}
}

func TestVanishedUserRejectedWithDistinctStatus(t *testing.T) {
	// Mint a valid token against one store, then serve requests from an
	// empty store sharing the same secrets.
	seeded := auth.NewInMemory()
	issuer, err := auth.NewService(seeded, "test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	_, pair, err := issuer.Signup(context.Background(), "Ghost", "ghost@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	empty := auth.NewInMemory()
	users, err := auth.NewService(empty, "test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	codec, err := session.NewCodec("test-session-secret")
	if err != nil {
		t.Fatalf("new session codec: %v", err)
	}
	api := New(users, task.NewService(task.NewInMemory(), empty), codec, ReadyProbe{}, "test",
		WithRateLimit(100, 100))

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for vanished user, got %d", rr.Code)
	}
}
