package checkout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/salesperiod/internal/model"
)

const testToday = "2025-06-15"

// docJSON は公開文書のJSONを組み立てるテストヘルパー。
func docJSON(t *testing.T, title string, variants ...map[string]string) json.RawMessage {
	t.Helper()
	vs := make([]map[string]string, 0, len(variants))
	vs = append(vs, variants...)
	doc := map[string]any{
		"catalogItemId": "gid://shop/Product/1",
		"title":         title,
		"variants":      vs,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to build doc: %v", err)
	}
	return data
}

// variantLine はバリアント明細を組み立てるテストヘルパー。
func variantLine(merchandiseID, productTitle string, metafield json.RawMessage) CartLine {
	line := CartLine{
		Merchandise: Merchandise{
			TypeName: merchandiseTypeVariant,
			ID:       merchandiseID,
			Product:  &ParentItem{Title: productTitle},
		},
	}
	if metafield != nil {
		line.Merchandise.Product.Metafield = &Metafield{JSONValue: metafield}
	}
	return line
}

func newTestEngine() *Engine {
	return NewEngine(slog.New(slog.NewTextHandler(testWriter{}, nil)))
}

// testWriter はテスト中のログ出力を捨てるio.Writer。
type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// シナリオA: 販売期間内のバリアントは拒否されないことを検証
func TestValidate_ActiveWindow_NoRejection(t *testing.T) {
	today, _ := model.ParseCalendarDate(testToday)
	doc := docJSON(t, "スニーカー", map[string]string{
		"variantId": "v1", "title": "26cm",
		"start": today.String(), "end": today.AddDays(10).String(),
	})

	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "スニーカー", doc)}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 0 {
		t.Errorf("rejections = %v, want empty", result.Rejections)
	}
}

// シナリオB: 販売開始前のバリアントは「開始前」の拒否理由を生成することを検証
func TestValidate_UpcomingWindow_Rejected(t *testing.T) {
	today, _ := model.ParseCalendarDate(testToday)
	doc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "v1", "title": "26cm",
		"start": today.AddDays(1).String(), "end": today.AddDays(10).String(),
	})

	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", doc)}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 1 {
		t.Fatalf("rejections = %d, want 1", len(result.Rejections))
	}
	r := result.Rejections[0]
	if r.Message != `The sales period for "Sneaker" has not started yet.` {
		t.Errorf("message = %q", r.Message)
	}
	if r.Target != "cart" {
		t.Errorf("target = %q, want cart", r.Target)
	}
}

// シナリオC: 販売終了後のバリアントは「終了済み」の拒否理由を生成することを検証
func TestValidate_ExpiredWindow_Rejected(t *testing.T) {
	today, _ := model.ParseCalendarDate(testToday)
	doc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "v1", "title": "26cm",
		"start": today.AddDays(-10).String(), "end": today.AddDays(-1).String(),
	})

	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", doc)}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 1 {
		t.Fatalf("rejections = %d, want 1", len(result.Rejections))
	}
	if result.Rejections[0].Message != `The sales period for "Sneaker" has ended.` {
		t.Errorf("message = %q", result.Rejections[0].Message)
	}
}

// シナリオD: 公開文書を持たない商品の明細は制限なしであることを検証
func TestValidate_NoDocument_Unrestricted(t *testing.T) {
	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", nil)}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 0 {
		t.Errorf("rejections = %v, want empty", result.Rejections)
	}
}

// 文書はあるが該当バリアントのウィンドウがない明細は制限なしであることを検証
func TestValidate_NoMatchingWindow_Unrestricted(t *testing.T) {
	doc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "other", "title": "27cm",
		"start": "2025-06-01", "end": "2025-06-30",
	})

	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", doc)}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 0 {
		t.Errorf("rejections = %v, want empty", result.Rejections)
	}
}

// シナリオE: 複数ウィンドウ間で分類が独立していることを検証
// （片方の期間を変えてももう片方の判定に影響しない）
func TestValidate_WindowsIndependent(t *testing.T) {
	today, _ := model.ParseCalendarDate(testToday)

	buildDoc := func(v2End string) json.RawMessage {
		return docJSON(t, "Sneaker",
			map[string]string{
				"variantId": "v1", "title": "26cm",
				"start": today.String(), "end": today.AddDays(5).String(),
			},
			map[string]string{
				"variantId": "v2", "title": "27cm",
				"start": today.AddDays(-20).String(), "end": v2End,
			},
		)
	}

	run := func(doc json.RawMessage) *Result {
		input := &Input{
			Cart: CartSnapshot{Lines: []CartLine{
				variantLine("v1", "Sneaker", doc),
				variantLine("v2", "Sneaker", doc),
			}},
			Shop: ShopContext{LocalDate: testToday},
		}
		return newTestEngine().Validate(input)
	}

	// v2が期限切れの場合: v1は通過、v2のみ拒否
	expired := run(buildDoc(today.AddDays(-10).String()))
	if len(expired.Rejections) != 1 || !strings.Contains(expired.Rejections[0].Message, "has ended") {
		t.Errorf("v2 expired: rejections = %v", expired.Rejections)
	}

	// v2の期間を延ばすと両方通過し、v1の判定は変わらない
	active := run(buildDoc(today.AddDays(10).String()))
	if len(active.Rejections) != 0 {
		t.Errorf("v2 active: rejections = %v, want empty", active.Rejections)
	}
}

// 拒否理由の順序がカート明細順であり、重複バリアントが独立に拒否されることを検証
func TestValidate_OrderingAndDuplicates(t *testing.T) {
	today, _ := model.ParseCalendarDate(testToday)
	doc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "v1", "title": "26cm",
		"start": today.AddDays(1).String(), "end": today.AddDays(10).String(),
	})

	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{
			variantLine("v1", "Sneaker", doc),
			variantLine("v1", "Sneaker", doc),
		}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 2 {
		t.Fatalf("duplicate lines should produce independent rejections, got %d", len(result.Rejections))
	}
	if result.Rejections[0] != result.Rejections[1] {
		t.Errorf("rejections differ: %v / %v", result.Rejections[0], result.Rejections[1])
	}
}

// バリアント以外のマーチャンダイズが対象外であることを検証
func TestValidate_NonVariantMerchandise_Skipped(t *testing.T) {
	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{
			{Merchandise: Merchandise{TypeName: "CustomProduct", ID: "c1"}},
		}},
		Shop: ShopContext{LocalDate: testToday},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 0 {
		t.Errorf("rejections = %v, want empty", result.Rejections)
	}
}

// 旧スキーマ（タイムスタンプ形式）の文書を読み取れることを検証
func TestValidate_LegacyTimestampDocument(t *testing.T) {
	// 旧スキーマでは開始・終了が終日正規化されたISOタイムスタンプだった
	doc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "v1", "title": "26cm",
		"start": "2025-06-01T00:00:00+09:00",
		"end":   "2025-06-10T23:59:59+09:00",
	})

	engine := newTestEngine()

	// 期間内
	result := engine.Validate(&Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", doc)}},
		Shop: ShopContext{LocalDate: "2025-06-10"},
	})
	if len(result.Rejections) != 0 {
		t.Errorf("2025-06-10 should be active: %v", result.Rejections)
	}

	// 終了日の翌日
	result = engine.Validate(&Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", doc)}},
		Shop: ShopContext{LocalDate: "2025-06-11"},
	})
	if len(result.Rejections) != 1 {
		t.Errorf("2025-06-11 should be expired: %v", result.Rejections)
	}
}

// 不正な形の文書がフェイルオープンで「制限なし」に縮退することを検証
func TestValidate_MalformedDocument_FailsOpen(t *testing.T) {
	today, _ := model.ParseCalendarDate(testToday)
	validDoc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "v2", "title": "27cm",
		"start": today.AddDays(1).String(), "end": today.AddDays(10).String(),
	})

	malformed := []json.RawMessage{
		json.RawMessage(`not json at all`),
		json.RawMessage(`{"variants": "oops"}`),
		json.RawMessage(`{"variants": [{"variantId": "v1", "start": "garbage", "end": "2025-06-30"}]}`),
		json.RawMessage(`{"variants": [{"start": "2025-06-01", "end": "2025-06-30"}]}`),
	}

	for i, bad := range malformed {
		t.Run(fmt.Sprintf("malformed_%d", i), func(t *testing.T) {
			input := &Input{
				Cart: CartSnapshot{Lines: []CartLine{
					variantLine("v1", "Broken", bad),
					variantLine("v2", "Sneaker", validDoc),
				}},
				Shop: ShopContext{LocalDate: testToday},
			}

			result := newTestEngine().Validate(input)
			// 壊れた明細は通過し、正常な明細の判定は生き続ける
			if len(result.Rejections) != 1 {
				t.Errorf("rejections = %v, want exactly the valid line's rejection", result.Rejections)
			}
		})
	}
}

// ショップのローカル日付が解釈できない場合に全明細が通過することを検証
func TestValidate_BadLocalDate_FailsOpen(t *testing.T) {
	doc := docJSON(t, "Sneaker", map[string]string{
		"variantId": "v1", "title": "26cm",
		"start": "2025-01-01", "end": "2025-01-31",
	})

	input := &Input{
		Cart: CartSnapshot{Lines: []CartLine{variantLine("v1", "Sneaker", doc)}},
		Shop: ShopContext{LocalDate: "not-a-date"},
	}

	result := newTestEngine().Validate(input)
	if len(result.Rejections) != 0 {
		t.Errorf("rejections = %v, want empty (fail open)", result.Rejections)
	}
}

// nil入力・空カートで空の結果が返ることを検証
func TestValidate_EmptyInput(t *testing.T) {
	engine := newTestEngine()

	if result := engine.Validate(nil); len(result.Rejections) != 0 {
		t.Error("nil input should yield empty result")
	}
	if result := engine.Validate(&Input{Shop: ShopContext{LocalDate: testToday}}); len(result.Rejections) != 0 {
		t.Error("empty cart should yield empty result")
	}
}
