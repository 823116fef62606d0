package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// CORSヘッダーが通常リクエストに付与されることを検証
func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	handler := NewCORSMiddleware("https://admin.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/schedules", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, ScopeHeaderName) {
		t.Errorf("Allow-Headers = %q, want to contain %s", got, ScopeHeaderName)
	}
}

// OPTIONSプリフライトが204で応答されることを検証
func TestCORSMiddleware_PreflightReturns204(t *testing.T) {
	called := false
	handler := NewCORSMiddleware("https://admin.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/schedules", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("next handler should not be called for preflight")
	}
}
