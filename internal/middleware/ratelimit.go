package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	MutationRate    rate.Limit    // 書き込み系（作成・更新・削除・照合）のレート（req/sec）
	MutationBurst   int           // 書き込み系のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/scope、書き込み系 30 req/min/scope。
// 書き込み系は1リクエストごとに外部カタログへの書き込みを伴うため、
// カタログ側のAPIコスト上限より十分低く抑える。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		MutationRate:    rate.Limit(30.0 / 60.0), // 0.5 req/sec
		MutationBurst:   30,
		CleanupInterval: 5 * time.Minute,
	}
}

// scopeLimiter はマーチャントスコープごとのレートリミッターとアクセス時刻を保持する。
type scopeLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はマーチャントスコープごとのレート制限を管理する。
// API全般のレート制限と書き込み系のレート制限の2種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*scopeLimiter

	mutationMu       sync.RWMutex
	mutationLimiters map[string]*scopeLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:           config,
		generalLimiters:  make(map[string]*scopeLimiter),
		mutationLimiters: make(map[string]*scopeLimiter),
		stopCh:           make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにマーチャントスコープが含まれている必要がある
// （ScopeMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := ScopeFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateGeneralLimiter(scope)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("owner_scope", scope),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MutationMiddleware は書き込み系エンドポイント専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) MutationMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := ScopeFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateMutationLimiter(scope)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.MutationRate)
				slog.Warn("rate limit exceeded",
					slog.String("owner_scope", scope),
					slog.String("limit_type", "mutation"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// MutationLimiterCount は現在管理されている書き込み系リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) MutationLimiterCount() int {
	rl.mutationMu.RLock()
	defer rl.mutationMu.RUnlock()
	return len(rl.mutationLimiters)
}

// getOrCreateGeneralLimiter はスコープのAPI全般リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateGeneralLimiter(scope string) *rate.Limiter {
	rl.generalMu.RLock()
	sl, exists := rl.generalLimiters[scope]
	rl.generalMu.RUnlock()

	if exists {
		rl.generalMu.Lock()
		sl.lastAccess = time.Now()
		rl.generalMu.Unlock()
		return sl.limiter
	}

	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	// ダブルチェック
	if sl, exists := rl.generalLimiters[scope]; exists {
		sl.lastAccess = time.Now()
		return sl.limiter
	}

	limiter := rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst)
	rl.generalLimiters[scope] = &scopeLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreateMutationLimiter はスコープの書き込み系リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateMutationLimiter(scope string) *rate.Limiter {
	rl.mutationMu.RLock()
	sl, exists := rl.mutationLimiters[scope]
	rl.mutationMu.RUnlock()

	if exists {
		rl.mutationMu.Lock()
		sl.lastAccess = time.Now()
		rl.mutationMu.Unlock()
		return sl.limiter
	}

	rl.mutationMu.Lock()
	defer rl.mutationMu.Unlock()

	// ダブルチェック
	if sl, exists := rl.mutationLimiters[scope]; exists {
		sl.lastAccess = time.Now()
		return sl.limiter
	}

	limiter := rate.NewLimiter(rl.config.MutationRate, rl.config.MutationBurst)
	rl.mutationLimiters[scope] = &scopeLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for scope, sl := range rl.generalLimiters {
		if now.Sub(sl.lastAccess) > ttl {
			delete(rl.generalLimiters, scope)
		}
	}
	rl.generalMu.Unlock()

	rl.mutationMu.Lock()
	for scope, sl := range rl.mutationLimiters {
		if now.Sub(sl.lastAccess) > ttl {
			delete(rl.mutationLimiters, scope)
		}
	}
	rl.mutationMu.Unlock()
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
