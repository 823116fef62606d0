// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/salesperiod/internal/middleware"
	"github.com/hitoshi/salesperiod/internal/model"
)

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 20

// maxListLimit は一覧取得の最大件数。
const maxListLimit = 100

// ScheduleServiceInterface はスケジュールハンドラーが必要とするサービスインターフェース。
type ScheduleServiceInterface interface {
	// Create は新しい販売期間スケジュールを登録する。
	Create(ctx context.Context, ownerScope, catalogItemID, title string, windows []model.Window) (*model.ScheduledItem, error)
	// Get は指定内部IDのスケジュールを取得する。
	Get(ctx context.Context, ownerScope, internalID string) (*model.ScheduledItem, error)
	// List はスケジュール一覧と総件数を返す。
	List(ctx context.Context, ownerScope string, offset, limit int) ([]*model.ScheduledItem, int, error)
	// ReplaceWindows はウィンドウ列を全置換する。
	ReplaceWindows(ctx context.Context, ownerScope, internalID string, windows []model.Window) (*model.ScheduledItem, error)
	// Delete はスケジュールを削除する。
	Delete(ctx context.Context, ownerScope, internalID string) error
	// SyncTitle はカタログの現在のタイトルを再同期する。
	SyncTitle(ctx context.Context, ownerScope, internalID string) (*model.ScheduledItem, error)
	// ReconcileItem は1件の公開文書を再導出して上書きする。
	ReconcileItem(ctx context.Context, ownerScope, internalID string) error
}

// ScheduleHandler は販売期間スケジュールのHTTPハンドラー。
type ScheduleHandler struct {
	service ScheduleServiceInterface
}

// NewScheduleHandler はScheduleHandlerを生成する。
func NewScheduleHandler(service ScheduleServiceInterface) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
	}
}

// windowPayload はウィンドウのAPI表現。リクエスト・レスポンス共用。
type windowPayload struct {
	MerchandiseID string             `json:"merchandise_id"`
	Label         string             `json:"label"`
	Start         model.CalendarDate `json:"start"`
	End           model.CalendarDate `json:"end"`
}

// scheduleResponse はスケジュールのAPIレスポンス。
type scheduleResponse struct {
	ID            string          `json:"id"`
	CatalogItemID string          `json:"catalog_item_id"`
	Title         string          `json:"title"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Windows       []windowPayload `json:"windows"`
}

// scheduleListResponse はスケジュール一覧のAPIレスポンス。
type scheduleListResponse struct {
	Schedules []scheduleResponse `json:"schedules"`
	Total     int                `json:"total"`
	Offset    int                `json:"offset"`
	Limit     int                `json:"limit"`
}

// createScheduleRequest はスケジュール作成リクエストのボディ。
type createScheduleRequest struct {
	CatalogItemID string          `json:"catalog_item_id"`
	Title         string          `json:"title"`
	Windows       []windowPayload `json:"windows"`
}

// updateScheduleRequest はウィンドウ置換リクエストのボディ。
type updateScheduleRequest struct {
	Windows []windowPayload `json:"windows"`
}

// reconcileResponse は照合実行のAPIレスポンス。
type reconcileResponse struct {
	Republished int `json:"republished"`
}

// List はスケジュール一覧を取得する。
// GET /api/schedules?offset=0&limit=20
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	offset, limit := parsePagination(r)

	items, total, err := h.service.List(r.Context(), scope, offset, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := scheduleListResponse{
		Schedules: make([]scheduleResponse, len(items)),
		Total:     total,
		Offset:    offset,
		Limit:     limit,
	}
	for i, item := range items {
		resp.Schedules[i] = toScheduleResponse(item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Create は新しいスケジュールを登録する。
// POST /api/schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	item, err := h.service.Create(r.Context(), scope, req.CatalogItemID, req.Title, toWindows(req.Windows))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toScheduleResponse(item)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Get は指定IDのスケジュールを取得する。
// GET /api/schedules/:id
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	item, err := h.service.Get(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toScheduleResponse(item)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Update はスケジュールのウィンドウ列を全置換する。
// PUT /api/schedules/:id
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	item, err := h.service.ReplaceWindows(r.Context(), scope, chi.URLParam(r, "id"), toWindows(req.Windows))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toScheduleResponse(item)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Delete はスケジュールを削除する。
// DELETE /api/schedules/:id
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reconcile は1件のスケジュールの公開文書を再導出して上書きする。
// POST /api/schedules/:id/reconcile
func (h *ScheduleHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	if err := h.service.ReconcileItem(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reconcileResponse{Republished: 1})
}

// SyncTitle はカタログの現在のタイトルを再同期する。
// POST /api/schedules/:id/sync-title
func (h *ScheduleHandler) SyncTitle(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}

	item, err := h.service.SyncTitle(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toScheduleResponse(item)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toScheduleResponse はドメインモデルをAPIレスポンスに変換する。
func toScheduleResponse(item *model.ScheduledItem) scheduleResponse {
	windows := make([]windowPayload, len(item.Windows))
	for i, w := range item.Windows {
		windows[i] = windowPayload{
			MerchandiseID: w.MerchandiseID,
			Label:         w.Label,
			Start:         w.Start,
			End:           w.End,
		}
	}
	return scheduleResponse{
		ID:            item.InternalID,
		CatalogItemID: item.CatalogItemID,
		Title:         item.Title,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
		Windows:       windows,
	}
}

// toWindows はAPIリクエストのウィンドウをドメインモデルに変換する。
func toWindows(payloads []windowPayload) []model.Window {
	windows := make([]model.Window, len(payloads))
	for i, p := range payloads {
		windows[i] = model.Window{
			MerchandiseID: p.MerchandiseID,
			Label:         p.Label,
			Start:         p.Start,
			End:           p.End,
		}
	}
	return windows
}

// parsePagination はクエリパラメータからoffset/limitを取り出す。
// 不正値や範囲外はデフォルトに丸める。
func parsePagination(r *http.Request) (offset, limit int) {
	offset = 0
	limit = defaultListLimit

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return offset, limit
}

// requireScope はリクエストコンテキストからマーチャントスコープを取り出す。
// 解決できない場合は401を書き込み、falseを返す。
func requireScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	scope, err := middleware.ScopeFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "マーチャントスコープが解決できません。",
			Category: "system",
			Action:   "管理画面から再度アクセスしてください。",
		})
		return "", false
	}
	return scope, true
}

// apiErrorResponse はAPIエラーレスポンスのJSON表現。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestError はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidWindowRange,
		model.ErrCodeDuplicateMerchandise,
		model.ErrCodeInvalidCalendarDate,
		model.ErrCodeEmptyMerchandiseID,
		model.ErrCodeEmptyCatalogItemID:
		return http.StatusBadRequest
	case model.ErrCodeScheduleConflict:
		return http.StatusConflict
	case model.ErrCodeScheduleNotFound:
		return http.StatusNotFound
	case model.ErrCodePublishFailed, model.ErrCodeRetractFailed:
		return http.StatusBadGateway
	case model.ErrCodeStorageFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
