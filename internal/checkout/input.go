// Package checkout はチェックアウト時の販売期間検証エンジンを提供する。
// エンジンはサンドボックス化された実行コンテキストで同期的に1回呼び出され、
// ホストが解決済みのカート・公開メタデータのみを入力とし、I/Oを一切行わない。
package checkout

import "encoding/json"

// merchandiseTypeVariant はバリアント種別のマーチャンダイズを示す型名。
const merchandiseTypeVariant = "ProductVariant"

// Input はホストプラットフォームがエンジンに渡す入力。
// カートのスナップショットとショップのローカル日付を含む。
// メタデータ文書はホストが解決済みで、エンジン側からの問い合わせは発生しない。
type Input struct {
	Cart CartSnapshot `json:"cart"`
	Shop ShopContext  `json:"shop"`
}

// CartSnapshot はチェックアウト時点のカートのスナップショット。
type CartSnapshot struct {
	Lines []CartLine `json:"lines"`
}

// CartLine はカートの1明細。
type CartLine struct {
	Merchandise Merchandise `json:"merchandise"`
}

// Merchandise は明細が参照する販売単位。
// バリアント（ProductVariant）の場合のみ親商品への参照を持つ。
type Merchandise struct {
	TypeName string      `json:"__typename"`
	ID       string      `json:"id"`
	Product  *ParentItem `json:"product"`
}

// ParentItem はバリアントの親カタログ商品。
// Metafieldにはホストが取得済みの公開メタデータ文書が入る（未公開ならnil）。
type ParentItem struct {
	Title     string     `json:"title"`
	Metafield *Metafield `json:"metafield"`
}

// Metafield は外部カタログのメタデータフィールド値。
type Metafield struct {
	JSONValue json.RawMessage `json:"jsonValue"`
}

// ShopContext はショップのローカル暦に関する情報。
// LocalDateは "YYYY-MM-DD" 形式のカレンダー日付で、ホストが
// ショップのタイムゾーンで導出した「今日」を渡す。
type ShopContext struct {
	LocalDate string `json:"localDate"`
}

// Rejection はチェックアウトをブロックする1件の拒否理由。
// Kindは拒否の種別（"upcoming" / "expired"）で、メトリクス用。
// ホストへのレスポンスには含めない。
type Rejection struct {
	Message string `json:"localizedMessage"`
	Target  string `json:"target"`
	Kind    string `json:"-"`
}

// Result はエンジンの実行結果。Errorsが空ならチェックアウトは通過する。
type Result struct {
	Rejections []Rejection `json:"errors"`
}

// rejectionTarget は拒否理由のターゲット。常にカート全体を指す。
const rejectionTarget = "cart"
