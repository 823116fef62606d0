package checkout

import (
	"fmt"
	"log/slog"

	"github.com/hitoshi/salesperiod/internal/availability"
	"github.com/hitoshi/salesperiod/internal/model"
)

// Engine はチェックアウト検証エンジン。
// カート明細ごとに公開メタデータ文書を参照し、販売期間外のバリアントに
// 対する拒否理由を生成する。I/O・可変共有状態を持たず、独立した
// チェックアウトに対して並行に呼び出しても安全。
type Engine struct {
	logger *slog.Logger
}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Validate はカートを検証し、拒否理由のリストを返す。
//
// 判定はカート明細の順に行われ、同一バリアントが複数明細に現れた場合は
// それぞれ独立に拒否理由を生成する（重複排除しない）。
//
// このエンジンは決してエラーを外に出さない。文書の形が想定と異なる場合や
// ショップのローカル日付が解釈できない場合は、該当範囲を「制限なし」として
// 扱い、診断ログのみを残す。スキーマ不整合がチェックアウト全体を
// 止めてはならないため、常にフェイルオープンで縮退する。
func (e *Engine) Validate(input *Input) *Result {
	result := &Result{Rejections: []Rejection{}}
	if input == nil {
		return result
	}

	today, err := model.ParseCalendarDate(input.Shop.LocalDate)
	if err != nil {
		// 日付なしでは分類できないため、全明細を制限なしとして通す
		e.logger.Error("ショップのローカル日付を解釈できません",
			slog.String("local_date", input.Shop.LocalDate),
			slog.String("error", err.Error()),
		)
		return result
	}

	for _, line := range input.Cart.Lines {
		if rejection := e.validateLine(line, today); rejection != nil {
			result.Rejections = append(result.Rejections, *rejection)
		}
	}

	return result
}

// validateLine は1明細を検証する。拒否理由がなければnilを返す。
func (e *Engine) validateLine(line CartLine, today model.CalendarDate) *Rejection {
	merchandise := line.Merchandise

	// バリアント以外のマーチャンダイズは対象外
	if merchandise.TypeName != merchandiseTypeVariant {
		return nil
	}

	// 公開文書が存在しない商品は制限なし
	if merchandise.Product == nil || merchandise.Product.Metafield == nil ||
		len(merchandise.Product.Metafield.JSONValue) == 0 {
		return nil
	}

	doc, err := decodeDocument(merchandise.Product.Metafield.JSONValue)
	if err != nil {
		// 不正な文書はこの明細を制限なしとして扱う（フェイルオープン）
		e.logger.Warn("公開文書を解釈できないため明細を制限なしとして扱います",
			slog.String("merchandise_id", merchandise.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	window := doc.findWindow(merchandise.ID)
	if window == nil {
		// 文書はあるがこのバリアントのウィンドウがない場合も制限なし
		return nil
	}

	title := merchandise.Product.Title
	if title == "" {
		title = doc.Title
	}

	switch availability.Classify(today, *window) {
	case availability.StatusUpcoming:
		return &Rejection{
			Message: fmt.Sprintf("The sales period for %q has not started yet.", title),
			Target:  rejectionTarget,
			Kind:    string(availability.StatusUpcoming),
		}
	case availability.StatusExpired:
		return &Rejection{
			Message: fmt.Sprintf("The sales period for %q has ended.", title),
			Target:  rejectionTarget,
			Kind:    string(availability.StatusExpired),
		}
	default:
		return nil
	}
}
