package checkout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hitoshi/salesperiod/internal/model"
)

// 新スキーマのカレンダー日付がそのまま解決されることを検証
func TestResolveDate_CurrentSchema(t *testing.T) {
	d, err := resolveDate("2025-06-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(model.CalendarDate{Year: 2025, Month: time.June, Day: 15}) {
		t.Errorf("got %v, want 2025-06-15", d)
	}
}

// 旧スキーマのタイムスタンプがそのオフセットにおける暦日へ解決されることを検証
func TestResolveDate_LegacySchema(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"UTC深夜", "2025-06-15T00:00:00Z", "2025-06-15"},
		{"JST終日正規化", "2025-06-15T23:59:59+09:00", "2025-06-15"},
		{"負オフセット", "2025-06-15T20:00:00-05:00", "2025-06-15"},
		{"ミリ秒付き", "2025-06-15T23:59:59.999+09:00", "2025-06-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := resolveDate(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.String() != tt.want {
				t.Errorf("resolveDate(%q) = %s, want %s", tt.in, d, tt.want)
			}
		})
	}
}

// どちらのスキーマでもない文字列が拒否されることを検証
func TestResolveDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "garbage", "2025/06/15", "15-06-2025"} {
		if _, err := resolveDate(s); err == nil {
			t.Errorf("resolveDate(%q) should fail", s)
		}
	}
}

// 新旧スキーマの混在した文書が1回のデコードで解決されることを検証
func TestDecodeDocument_MixedSchemas(t *testing.T) {
	raw := json.RawMessage(`{
		"catalogItemId": "gid://shop/Product/1",
		"title": "Sneaker",
		"variants": [
			{"variantId": "v1", "title": "26cm", "start": "2025-06-01", "end": "2025-06-30"},
			{"variantId": "v2", "title": "27cm", "start": "2025-07-01T00:00:00+09:00", "end": "2025-07-31T23:59:59+09:00"}
		]
	}`)

	doc, err := decodeDocument(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(doc.Windows))
	}
	if doc.Windows[0].Start.String() != "2025-06-01" {
		t.Errorf("current schema start = %s", doc.Windows[0].Start)
	}
	if doc.Windows[1].Start.String() != "2025-07-01" || doc.Windows[1].End.String() != "2025-07-31" {
		t.Errorf("legacy schema resolved to %s..%s", doc.Windows[1].Start, doc.Windows[1].End)
	}
}

// ウィンドウ0件の文書が正常にデコードされることを検証
func TestDecodeDocument_EmptyVariants(t *testing.T) {
	doc, err := decodeDocument(json.RawMessage(`{"catalogItemId": "x", "title": "T", "variants": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Windows) != 0 {
		t.Errorf("windows = %d, want 0", len(doc.Windows))
	}
	if doc.findWindow("v1") != nil {
		t.Error("findWindow on empty doc should be nil")
	}
}
