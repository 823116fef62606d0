package checkout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/salesperiod/internal/model"
)

// rawDocument は公開メタデータ文書の許容デコード用の形。
// start/endは新スキーマ（カレンダー日付）と旧スキーマ（タイムスタンプ）の
// 両方を受け付けるため、いったん文字列として受ける。
type rawDocument struct {
	CatalogItemID string       `json:"catalogItemId"`
	Title         string       `json:"title"`
	Variants      []rawVariant `json:"variants"`
}

type rawVariant struct {
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// decodedDocument はスキーマ解決後の文書。
// ウィンドウの日付はこの時点で正準のCalendarDateに解決済みであり、
// 旧スキーマの表現がエンジン内部に伝播することはない。
type decodedDocument struct {
	Title   string
	Windows []model.Window
}

// decodeDocument は公開メタデータ文書をデコードし、旧スキーマの
// タイムスタンプ表現をカレンダー日付へ解決する。
// 不正な形の文書はエラーを返し、呼び出し元は該当明細を「制限なし」として扱う。
func decodeDocument(raw json.RawMessage) (*decodedDocument, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("公開文書のパースに失敗しました: %w", err)
	}

	windows := make([]model.Window, 0, len(doc.Variants))
	for _, v := range doc.Variants {
		if v.VariantID == "" {
			return nil, fmt.Errorf("公開文書にバリアントIDのない項目が含まれています")
		}
		start, err := resolveDate(v.Start)
		if err != nil {
			return nil, fmt.Errorf("開始日の解決に失敗しました (%s): %w", v.VariantID, err)
		}
		end, err := resolveDate(v.End)
		if err != nil {
			return nil, fmt.Errorf("終了日の解決に失敗しました (%s): %w", v.VariantID, err)
		}
		windows = append(windows, model.Window{
			MerchandiseID: v.VariantID,
			Label:         v.Title,
			Start:         start,
			End:           end,
		})
	}

	return &decodedDocument{Title: doc.Title, Windows: windows}, nil
}

// resolveDate は新旧2つの日付表現をカレンダー日付へ解決する。
//   - 新スキーマ: "YYYY-MM-DD"
//   - 旧スキーマ: RFC3339タイムスタンプ。タイムスタンプ自身のオフセットに
//     おける暦日を採用する（書き込み時にショップのローカル時刻で
//     正規化されていたため）。
//
// 書き込み側は常に新スキーマのみを出力する。ここは読み取り互換のためだけの層。
func resolveDate(s string) (model.CalendarDate, error) {
	if d, err := model.ParseCalendarDate(s); err == nil {
		return d, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return model.CalendarDate{}, fmt.Errorf("日付表現を解釈できません: %q", s)
	}
	return model.CalendarDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// findWindow はデコード済み文書からバリアントIDに一致するウィンドウを返す。
// 見つからない場合はnilを返す（該当明細は制限なし）。
func (d *decodedDocument) findWindow(merchandiseID string) *model.Window {
	for i := range d.Windows {
		if d.Windows[i].MerchandiseID == merchandiseID {
			return &d.Windows[i]
		}
	}
	return nil
}
