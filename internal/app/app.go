package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/salesperiod/internal/catalog"
	"github.com/hitoshi/salesperiod/internal/checkout"
	"github.com/hitoshi/salesperiod/internal/config"
	"github.com/hitoshi/salesperiod/internal/database"
	"github.com/hitoshi/salesperiod/internal/handler"
	"github.com/hitoshi/salesperiod/internal/logger"
	"github.com/hitoshi/salesperiod/internal/metrics"
	"github.com/hitoshi/salesperiod/internal/middleware"
	"github.com/hitoshi/salesperiod/internal/repository"
	"github.com/hitoshi/salesperiod/internal/schedule"
	"github.com/hitoshi/salesperiod/internal/security"
	"github.com/hitoshi/salesperiod/internal/worker/reconcile"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	scheduleRepo := repository.NewPostgresScheduleRepo(db)

	// 3. セキュリティサービスの初期化
	// カタログAPIのエンドポイントはショップごとの設定値であり信頼できないため、
	// 起動時に検証し、外向きHTTPはすべてSSRF防止クライアントを通す
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.CatalogAPIURL); err != nil {
		return fmt.Errorf("catalog API URL rejected: %w", err)
	}
	sanitizer := security.NewTitleSanitizer()

	// 4. カタログクライアントの初期化
	catalogClient := catalog.NewClient(
		ssrfGuard.NewSafeClient(cfg.PublishTimeout),
		slog.Default(), cfg.CatalogAPIURL, cfg.CatalogAPIToken,
	)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ドメインサービスの初期化
	scheduleService := schedule.NewService(
		scheduleRepo, catalogClient, sanitizer, collector, slog.Default(),
	)

	engine := checkout.NewEngine(slog.Default())
	runner := checkout.NewRunner(engine, cfg.ValidateBudget, slog.Default())

	// 7. ルーターの構築
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.MutationRate = rate.Limit(float64(cfg.RateLimitMutation) / 60.0)
	rateLimiterCfg.MutationBurst = cfg.RateLimitMutation

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		Logger:            slog.Default(),

		ScheduleService: scheduleService,

		CheckoutRunner:       runner,
		TimezoneFetcher:      catalogClient,
		ShopTimezoneFallback: cfg.ShopTimezoneFallback,

		Metrics:  collector,
		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は照合ワーカーモードで起動する。
// DB接続を開き、レコードストアを正本として全マーチャントの公開文書を
// 定期的に再公開するワーカーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	scheduleRepo := repository.NewPostgresScheduleRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.CatalogAPIURL); err != nil {
		return fmt.Errorf("catalog API URL rejected: %w", err)
	}
	sanitizer := security.NewTitleSanitizer()

	// 4. カタログクライアントとサービスの初期化
	catalogClient := catalog.NewClient(
		ssrfGuard.NewSafeClient(cfg.PublishTimeout),
		slog.Default(), cfg.CatalogAPIURL, cfg.CatalogAPIToken,
	)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	scheduleService := schedule.NewService(
		scheduleRepo, catalogClient, sanitizer, collector, slog.Default(),
	)

	// 5. 照合ワーカーの初期化
	reconciler := reconcile.NewReconciler(
		scheduleRepo, scheduleService, slog.Default(), cfg.ReconcileMaxConcurrent,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Int("max_concurrent", cfg.ReconcileMaxConcurrent),
	)

	// 照合ワーカーをメインgoroutineで実行（ブロッキング）
	reconciler.Start(ctx, cfg.ReconcileInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
