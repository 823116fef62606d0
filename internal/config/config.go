// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Catalog
	CatalogAPIURL   string
	CatalogAPIToken string
	PublishTimeout  time.Duration

	// Shop
	// カタログからタイムゾーンを取得できない場合のフォールバック（IANA識別子）
	ShopTimezoneFallback string

	// Checkout
	ValidateBudget time.Duration

	// Reconcile
	ReconcileInterval      time.Duration
	ReconcileMaxConcurrent int

	// Rate Limit
	RateLimitGeneral  int
	RateLimitMutation int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.CatalogAPIURL = os.Getenv("CATALOG_API_URL")
	if cfg.CatalogAPIURL == "" {
		missing = append(missing, "CATALOG_API_URL")
	}

	cfg.CatalogAPIToken = os.Getenv("CATALOG_API_TOKEN")
	if cfg.CatalogAPIToken == "" {
		missing = append(missing, "CATALOG_API_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PublishTimeout = getEnvDuration("PUBLISH_TIMEOUT", 10*time.Second)
	cfg.ShopTimezoneFallback = getEnvString("SHOP_TIMEZONE", "UTC")
	cfg.ValidateBudget = getEnvDuration("VALIDATE_BUDGET", 50*time.Millisecond)
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", time.Hour)
	cfg.ReconcileMaxConcurrent = getEnvInt("RECONCILE_MAX_CONCURRENT", 4)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
