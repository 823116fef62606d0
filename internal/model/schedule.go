// Package model はドメインモデルを定義する。
package model

import "time"

// ScheduledItem はひとつのカタログ商品に紐づく販売期間の集約を表す。
// レコードストアが正本を所有し、外部カタログのメタデータは
// この集約からの純粋な射影として導出される。
type ScheduledItem struct {
	InternalID    string // レコードストアが発行する不透明ID
	CatalogItemID string // 外部カタログ側の商品ID。作成後は不変
	Title         string // カタログ商品タイトルの非正規化コピー（表示用）
	OwnerScope    string // レコードを所有するマーチャントのスコープ
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Windows       []Window // 表示順。分類処理では順序に意味を持たない
}

// Window はひとつの販売単位（バリアント）が購入可能な
// カレンダー日付の閉区間を表す。
type Window struct {
	MerchandiseID string // バリアントID。ScheduledItem内で一意
	Label         string // バリアントタイトルの非正規化コピー（表示用）
	Start         CalendarDate
	End           CalendarDate
}

// ValidateWindows はwindowsの不変条件を検証する。
// 違反時は*APIErrorを返す（書き込み時に拒否され、永続化されない）:
//   - 各ウィンドウで Start <= End であること
//   - MerchandiseIDが集約内で一意であること
//
// ウィンドウ0件は許容される（強制効果を持たないだけで正当な状態）。
func ValidateWindows(windows []Window) error {
	seen := make(map[string]struct{}, len(windows))
	for _, w := range windows {
		if w.MerchandiseID == "" {
			return NewEmptyMerchandiseIDError()
		}
		if _, ok := seen[w.MerchandiseID]; ok {
			return NewDuplicateMerchandiseError(w.MerchandiseID)
		}
		seen[w.MerchandiseID] = struct{}{}

		if w.Start.IsZero() || w.End.IsZero() {
			return NewInvalidCalendarDateError(w.MerchandiseID)
		}
		if w.Start.After(w.End) {
			return NewInvalidWindowRangeError(w.MerchandiseID, w.Start, w.End)
		}
	}
	return nil
}

// FindWindow はmerchandiseIDに一致するウィンドウを返す。
// 見つからない場合はnilを返す。
func (s *ScheduledItem) FindWindow(merchandiseID string) *Window {
	for i := range s.Windows {
		if s.Windows[i].MerchandiseID == merchandiseID {
			return &s.Windows[i]
		}
	}
	return nil
}
