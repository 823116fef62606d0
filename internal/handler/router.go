package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/salesperiod/internal/metrics"
	"github.com/hitoshi/salesperiod/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// スケジュール管理
	ScheduleService ScheduleServiceInterface

	// チェックアウト検証
	CheckoutRunner CheckoutRunnerInterface
	// ローカル日付省略時のタイムゾーン導出（nil可）
	TimezoneFetcher      ShopTimezoneFetcher
	ShopTimezoneFallback string

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → Scope → RateLimit(General)
//
// ヘルスチェックとメトリクス（/health, /metrics）はスコープ解決の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	scheduleHandler := NewScheduleHandler(deps.ScheduleService)
	validateHandler := NewValidateHandler(deps.CheckoutRunner, deps.TimezoneFetcher, deps.ShopTimezoneFallback, deps.Metrics)

	// --- スコープ不要のルート ---

	r.Get("/health", handleHealth)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- マーチャントスコープが必要なルート ---
	// ミドルウェアスタック: Scope → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewScopeMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// スケジュール管理
		r.Route("/api/schedules", func(r chi.Router) {
			r.Get("/", scheduleHandler.List)
			// 書き込み系は外部カタログへの書き込みを伴うため専用レート制限を追加
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/", scheduleHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", scheduleHandler.Get)
				r.With(deps.RateLimiter.MutationMiddleware()).Put("/", scheduleHandler.Update)
				r.With(deps.RateLimiter.MutationMiddleware()).Delete("/", scheduleHandler.Delete)
				r.With(deps.RateLimiter.MutationMiddleware()).Post("/reconcile", scheduleHandler.Reconcile)
				r.With(deps.RateLimiter.MutationMiddleware()).Post("/sync-title", scheduleHandler.SyncTitle)
			})
		})

		// チェックアウト検証（ホストプラットフォームからの呼び出し）
		r.Post("/api/checkout/validate", validateHandler.Validate)
	})

	return r
}

// handleHealth はヘルスチェックエンドポイント。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
