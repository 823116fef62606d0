// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TitleSanitizerService は外部カタログ由来の非正規化タイトルをサニタイズする。
// タイトルはマーチャント向けUIとチェックアウトの拒否メッセージの両方に
// そのまま埋め込まれるため、タグ・スクリプトを一切含まないプレーンテキストに
// 正規化してから保存する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizerService はタイトルのサニタイズ機能のインターフェースを定義する。
// スケジュールの作成・タイトル再同期の保存前に使用される。
type TitleSanitizerService interface {
	// Sanitize はタイトルからすべてのHTMLタグを除去し、前後の空白を取り除く。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawTitle string) string
}

// titleSanitizer はTitleSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはいかなるタグ・属性も許可しないため、タイトルは常に
// プレーンテキストになる。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタイトルからすべてのHTMLタグを除去し、前後の空白を取り除く。
func (s *titleSanitizer) Sanitize(rawTitle string) string {
	return strings.TrimSpace(s.policy.Sanitize(rawTitle))
}
