package daemon

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthMiddlewarePassthroughWithoutToken(t *testing.T) {
	called := false
	handler := authMiddleware("", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if !called {
		t.Fatal("expected handler to be invoked without auth")
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be invoked")
	})
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsWrongToken(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be invoked")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error body, got content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"error":"unauthorized"`) {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	called := false
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	handler(w, req)
	if !called {
		t.Fatal("expected handler to be invoked with valid token")
	}
}
