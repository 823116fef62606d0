package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/salesperiod/internal/checkout"
	"github.com/hitoshi/salesperiod/internal/metrics"
	"github.com/hitoshi/salesperiod/internal/model"
)

// CheckoutRunnerInterface はチェックアウト検証ハンドラーが必要とする
// サンドボックス実行のインターフェース。
type CheckoutRunnerInterface interface {
	Run(ctx context.Context, input *checkout.Input) (*checkout.Result, error)
}

// ShopTimezoneFetcher はショップのIANAタイムゾーン識別子の取得インターフェース。
// catalog.Clientの部分集合として定義する。
type ShopTimezoneFetcher interface {
	FetchShopTimezone(ctx context.Context) (string, error)
}

// ValidateHandler はチェックアウト検証のHTTPハンドラー。
// ホストプラットフォームがカートのスナップショットを送り、
// 拒否理由のリストを受け取るエントリポイント。
type ValidateHandler struct {
	runner     CheckoutRunnerInterface
	tzFetcher  ShopTimezoneFetcher
	fallbackTZ string
	metrics    metrics.MetricsCollector
}

// NewValidateHandler はValidateHandlerを生成する。
// tzFetcherとcollectorはnilでもよい
// （タイムゾーン取得をスキップ・メトリクス記録を省略する）。
func NewValidateHandler(
	runner CheckoutRunnerInterface,
	tzFetcher ShopTimezoneFetcher,
	fallbackTZ string,
	collector metrics.MetricsCollector,
) *ValidateHandler {
	return &ValidateHandler{
		runner:     runner,
		tzFetcher:  tzFetcher,
		fallbackTZ: fallbackTZ,
		metrics:    collector,
	}
}

// Validate はカートを検証し拒否理由を返す。
// POST /api/checkout/validate
// 時間予算超過・panicはこの実行の確定的な失敗であり、502を返す
// （リトライ可否の判断はホスト側の責務）。
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var input checkout.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidRequestError(w)
		return
	}

	// ホストがローカル日付を省略した場合はショップのタイムゾーンから導出する
	if input.Shop.LocalDate == "" {
		input.Shop.LocalDate = h.shopLocalDate(r.Context())
	}

	start := time.Now()
	result, err := h.runner.Run(r.Context(), &input)
	if h.metrics != nil {
		h.metrics.RecordValidationLatency(time.Since(start))
	}
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "VALIDATION_ABORTED",
			Message:  "チェックアウト検証を完了できませんでした。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	if h.metrics != nil {
		for _, rejection := range result.Rejections {
			h.metrics.RecordRejection(rejection.Kind)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// shopLocalDate はショップのタイムゾーンにおける今日の暦日を返す。
// カタログからタイムゾーンを取得できない場合はフォールバック設定を使い、
// それも解釈できない場合はUTCへ縮退する。
func (h *ValidateHandler) shopLocalDate(ctx context.Context) string {
	tzName := h.fallbackTZ
	if h.tzFetcher != nil {
		name, err := h.tzFetcher.FetchShopTimezone(ctx)
		if err != nil {
			slog.Warn("ショップのタイムゾーン取得に失敗したためフォールバックを使用します",
				slog.String("fallback", h.fallbackTZ),
				slog.String("error", err.Error()),
			)
		} else if name != "" {
			tzName = name
		}
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		slog.Warn("タイムゾーン識別子を解釈できないためUTCを使用します",
			slog.String("timezone", tzName),
		)
		loc = time.UTC
	}

	return model.DateOf(time.Now(), loc).String()
}
