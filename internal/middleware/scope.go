// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
)

// ScopeHeaderName はホストプラットフォームのプロキシが設定する
// マーチャントスコープのHTTPヘッダー名。
const ScopeHeaderName = "X-Owner-Scope"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// ownerScopeContextKey はリクエストコンテキストにマーチャントスコープを格納するためのキー。
var ownerScopeContextKey = contextKey("owner_scope")

// NewScopeMiddleware はリクエストヘッダーからマーチャントスコープを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// スコープはホスト側で認証済みのプロキシが付与する前提であり、
// ヘッダーが欠けたリクエストには401 Unauthorizedを返す。
// 以降のすべての読み書きはこのスコープで限定される。
func NewScopeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := r.Header.Get(ScopeHeaderName)
			if scope == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ownerScopeContextKey, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ScopeFromContext はリクエストコンテキストからマーチャントスコープを取得する。
// スコープミドルウェアを通過したリクエストでのみ有効。
func ScopeFromContext(ctx context.Context) (string, error) {
	scope, ok := ctx.Value(ownerScopeContextKey).(string)
	if !ok || scope == "" {
		return "", fmt.Errorf("owner scope not found in context")
	}
	return scope, nil
}

// ContextWithScope はコンテキストにマーチャントスコープを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, ownerScopeContextKey, scope)
}
