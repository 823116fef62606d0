// Package model はドメインモデルを定義する。
package model

// PublishedDocument はチェックアウト時に参照される公開メタデータ文書。
// ScheduledItemからの純粋な射影（InternalID・OwnerScope・タイムスタンプを
// 落としたもの）であり、外部カタログのメタデータフィールドにJSONとして
// 格納される。フィールドの不在は「制限なし」を意味する。
type PublishedDocument struct {
	CatalogItemID string             `json:"catalogItemId"`
	Title         string             `json:"title"`
	Variants      []PublishedVariant `json:"variants"`
}

// PublishedVariant は公開文書内のバリアントごとの販売期間。
// start/endは "YYYY-MM-DD" のカレンダー日付として直列化される
// （旧スキーマのタイムスタンプ形式は読み取りのみ許容し、書き込みは常にこの形式）。
type PublishedVariant struct {
	VariantID string       `json:"variantId"`
	Title     string       `json:"title"`
	Start     CalendarDate `json:"start"`
	End       CalendarDate `json:"end"`
}

// ProjectPublished はScheduledItemを公開文書へ射影する。
// 射影は純粋で、同一入力に対して常に同一の文書を返す。
// 存在しないマーチャンダイズのウィンドウを参照することはない
// （Windowsをそのまま写すため、ライブな集約と常に一致する）。
func ProjectPublished(item *ScheduledItem) *PublishedDocument {
	variants := make([]PublishedVariant, len(item.Windows))
	for i, w := range item.Windows {
		variants[i] = PublishedVariant{
			VariantID: w.MerchandiseID,
			Title:     w.Label,
			Start:     w.Start,
			End:       w.End,
		}
	}
	return &PublishedDocument{
		CatalogItemID: item.CatalogItemID,
		Title:         item.Title,
		Variants:      variants,
	}
}
