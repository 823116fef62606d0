// Package availability は販売期間の分類ロジックを提供する。
// 管理画面でのプレビューとチェックアウト時の強制判定の両方がこの関数を使い、
// 境界の意味（両端含む・カレンダー日付比較）が常に一致することを保証する。
package availability

import "github.com/hitoshi/salesperiod/internal/model"

// Status は販売期間の分類結果を表す。
type Status string

const (
	// StatusUpcoming は販売開始前の状態。
	StatusUpcoming Status = "upcoming"
	// StatusActive は販売中の状態。開始日・終了日の当日を含む。
	StatusActive Status = "active"
	// StatusExpired は販売終了後の状態。
	StatusExpired Status = "expired"
)

// Classify はtodayとウィンドウの関係を分類する。
// 純粋関数であり、I/O・可変状態を一切持たない。
//
// 比較はカレンダー日付同士で行う。終了日の当日中の任意の時刻はActive、
// 翌日になった瞬間からExpiredとなる。時刻付きインスタントとの比較を
// 混在させると実効終了時刻がタイムゾーン処理次第で最大24時間ずれるため、
// この関数はCalendarDate以外を受け取らない。
func Classify(today model.CalendarDate, w model.Window) Status {
	if today.Before(w.Start) {
		return StatusUpcoming
	}
	if today.After(w.End) {
		return StatusExpired
	}
	return StatusActive
}
