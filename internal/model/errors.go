// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, schedule, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidWindowRange   = "INVALID_WINDOW_RANGE"
	ErrCodeDuplicateMerchandise = "DUPLICATE_MERCHANDISE"
	ErrCodeInvalidCalendarDate  = "INVALID_CALENDAR_DATE"
	ErrCodeEmptyMerchandiseID   = "EMPTY_MERCHANDISE_ID"
	ErrCodeEmptyCatalogItemID   = "EMPTY_CATALOG_ITEM_ID"
	ErrCodeScheduleConflict     = "SCHEDULE_CONFLICT"
	ErrCodeScheduleNotFound     = "SCHEDULE_NOT_FOUND"
	ErrCodePublishFailed        = "PUBLISH_FAILED"
	ErrCodeRetractFailed        = "RETRACT_FAILED"
	ErrCodeStorageFailed        = "STORAGE_FAILED"
)

// NewInvalidWindowRangeError は開始日が終了日より後のウィンドウに対するエラーを生成する。
// 不正な期間は書き込み時に拒否され、暗黙に補正されることはない。
func NewInvalidWindowRangeError(merchandiseID string, start, end CalendarDate) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWindowRange,
		Message:  fmt.Sprintf("販売期間の開始日が終了日より後になっています: %s (%s > %s)", merchandiseID, start, end),
		Category: "validation",
		Action:   "開始日が終了日以前になるように期間を修正してください。",
	}
}

// NewDuplicateMerchandiseError は同一バリアントへの重複ウィンドウに対するエラーを生成する。
func NewDuplicateMerchandiseError(merchandiseID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateMerchandise,
		Message:  fmt.Sprintf("同じバリアントに複数の販売期間が指定されています: %s", merchandiseID),
		Category: "validation",
		Action:   "バリアントごとに販売期間は1件のみ指定してください。",
	}
}

// NewInvalidCalendarDateError は日付が未指定または不正な場合のエラーを生成する。
func NewInvalidCalendarDateError(merchandiseID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCalendarDate,
		Message:  fmt.Sprintf("販売期間の日付が不正です: %s", merchandiseID),
		Category: "validation",
		Action:   "開始日・終了日を YYYY-MM-DD 形式で指定してください。",
	}
}

// NewEmptyMerchandiseIDError はバリアントIDが空の場合のエラーを生成する。
func NewEmptyMerchandiseIDError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMerchandiseID,
		Message:  "バリアントIDが指定されていません。",
		Category: "validation",
		Action:   "販売期間を設定するバリアントを選択してください。",
	}
}

// NewEmptyCatalogItemIDError はカタログ商品IDが空の場合のエラーを生成する。
func NewEmptyCatalogItemIDError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCatalogItemID,
		Message:  "カタログ商品IDが指定されていません。",
		Category: "validation",
		Action:   "販売期間を設定する商品を選択してください。",
	}
}

// NewScheduleConflictError は同一カタログ商品に既にスケジュールが存在する場合の
// 競合エラーを生成する。暗黙のマージは行わない。
func NewScheduleConflictError(catalogItemID string) *APIError {
	return &APIError{
		Code:     ErrCodeScheduleConflict,
		Message:  fmt.Sprintf("この商品には既に販売期間が登録されています: %s", catalogItemID),
		Category: "schedule",
		Action:   "既存の販売期間を編集するか、先に削除してから再登録してください。",
	}
}

// NewScheduleNotFoundError はスケジュールが見つからない場合のエラーを生成する。
func NewScheduleNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeScheduleNotFound,
		Message:  fmt.Sprintf("指定された販売期間が見つかりません: %s", id),
		Category: "schedule",
		Action:   "販売期間のIDを確認してください。",
	}
}

// NewPublishFailedError は外部カタログへのメタデータ公開失敗エラーを生成する。
// 強い二重書き込みポリシーのもとでは、このエラー時にレコードストアへの
// 書き込みは行われない。
func NewPublishFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePublishFailed,
		Message:  "カタログへの販売期間の公開に失敗しました。",
		Category: "catalog",
		Action:   "しばらく待ってから再度保存してください。",
	}
}

// NewRetractFailedError は外部カタログからのメタデータ削除失敗エラーを生成する。
func NewRetractFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeRetractFailed,
		Message:  "カタログからの販売期間の削除に失敗しました。",
		Category: "catalog",
		Action:   "しばらく待ってから再度削除してください。",
	}
}

// NewStorageFailedError はレコードストア障害の汎用エラーを生成する。
func NewStorageFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailed,
		Message:  "データの保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
