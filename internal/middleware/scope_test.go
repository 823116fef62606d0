package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// スコープヘッダー付きリクエストが通過し、コンテキストにスコープが入ることを検証
func TestScopeMiddleware_InjectsScope(t *testing.T) {
	var gotScope string
	handler := NewScopeMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := ScopeFromContext(r.Context())
		if err != nil {
			t.Errorf("ScopeFromContext() error: %v", err)
		}
		gotScope = scope
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/schedules", nil)
	req.Header.Set(ScopeHeaderName, "shop-a.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotScope != "shop-a.example.com" {
		t.Errorf("scope = %q, want shop-a.example.com", gotScope)
	}
}

// スコープヘッダーのないリクエストが401で拒否されることを検証
func TestScopeMiddleware_RejectsMissingHeader(t *testing.T) {
	called := false
	handler := NewScopeMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/schedules", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("next handler should not be called")
	}
}

// スコープ未設定のコンテキストからの取得がエラーになることを検証
func TestScopeFromContext_MissingScope(t *testing.T) {
	_, err := ScopeFromContext(context.Background())
	if err == nil {
		t.Error("expected error for context without scope")
	}
}

// ContextWithScopeで注入したスコープが取得できることを検証
func TestContextWithScope_RoundTrip(t *testing.T) {
	ctx := ContextWithScope(context.Background(), "shop-b.example.com")

	scope, err := ScopeFromContext(ctx)
	if err != nil {
		t.Fatalf("ScopeFromContext() error: %v", err)
	}
	if scope != "shop-b.example.com" {
		t.Errorf("scope = %q, want shop-b.example.com", scope)
	}
}
