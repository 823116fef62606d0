// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/salesperiod/internal/model"
)

// ScheduleRepository は販売期間レコードの永続化インターフェース。
// レコードストアが正本であり、公開メタデータは常にここから導出される。
// すべての読み書きはownerScopeでスコープされる（他マーチャントのレコードには
// 決して到達しない）。「見つからない」はnil、ストレージ障害はエラーで区別する。
type ScheduleRepository interface {
	// FindByID は指定内部IDのレコードをウィンドウ付きで取得する。
	// 見つからない場合・スコープ外の場合はnilを返す。
	FindByID(ctx context.Context, ownerScope, internalID string) (*model.ScheduledItem, error)

	// FindByCatalogItemID はカタログ商品IDでレコードを検索する。
	// 作成時の競合検出に使用する。見つからない場合はnilを返す。
	FindByCatalogItemID(ctx context.Context, ownerScope, catalogItemID string) (*model.ScheduledItem, error)

	// Create はレコードとウィンドウを同一トランザクションで作成する。
	Create(ctx context.Context, item *model.ScheduledItem) error

	// ReplaceWindows はウィンドウ列を全置換する（部分更新はしない）。
	// 置換と同時にupdated_atを更新する。
	ReplaceWindows(ctx context.Context, ownerScope, internalID string, windows []model.Window, updatedAt time.Time) error

	// UpdateTitle は非正規化タイトルを更新する。
	UpdateTitle(ctx context.Context, ownerScope, internalID, title string, updatedAt time.Time) error

	// Delete は指定内部IDのレコードを削除する。
	// 関連するウィンドウはCASCADE削除される。
	Delete(ctx context.Context, ownerScope, internalID string) error

	// ListByOwnerScope はマーチャントのレコード一覧をウィンドウ付きで返す。
	// created_at昇順・オフセットページネーション。一覧UIと照合ワーカーが使用する。
	ListByOwnerScope(ctx context.Context, ownerScope string, offset, limit int) ([]*model.ScheduledItem, error)

	// CountByOwnerScope はマーチャントのレコード総数を返す。
	CountByOwnerScope(ctx context.Context, ownerScope string) (int, error)

	// ListOwnerScopes はレコードを1件以上持つマーチャントスコープの一覧を返す。
	// 照合ワーカーが全マーチャントを巡回するために使用する。
	ListOwnerScopes(ctx context.Context) ([]string, error)
}
