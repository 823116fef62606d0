package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/salesperiod/internal/model"
)

// PostgresScheduleRepo はPostgreSQLを使用した販売期間リポジトリ。
type PostgresScheduleRepo struct {
	db *sql.DB
}

// NewPostgresScheduleRepo はPostgresScheduleRepoを生成する。
func NewPostgresScheduleRepo(db *sql.DB) *PostgresScheduleRepo {
	return &PostgresScheduleRepo{db: db}
}

// FindByID は指定内部IDのレコードをウィンドウ付きで取得する。
// 見つからない場合・スコープ外の場合はnilを返す。
func (r *PostgresScheduleRepo) FindByID(ctx context.Context, ownerScope, internalID string) (*model.ScheduledItem, error) {
	item := &model.ScheduledItem{}

	err := r.db.QueryRowContext(ctx,
		`SELECT internal_id, catalog_item_id, title, owner_scope, created_at, updated_at
		 FROM scheduled_items WHERE owner_scope = $1 AND internal_id = $2`,
		ownerScope, internalID,
	).Scan(
		&item.InternalID, &item.CatalogItemID, &item.Title,
		&item.OwnerScope, &item.CreatedAt, &item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("販売期間レコードの取得に失敗しました: %w", err)
	}

	if err := r.loadWindows(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// FindByCatalogItemID はカタログ商品IDでレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresScheduleRepo) FindByCatalogItemID(ctx context.Context, ownerScope, catalogItemID string) (*model.ScheduledItem, error) {
	item := &model.ScheduledItem{}

	err := r.db.QueryRowContext(ctx,
		`SELECT internal_id, catalog_item_id, title, owner_scope, created_at, updated_at
		 FROM scheduled_items WHERE owner_scope = $1 AND catalog_item_id = $2`,
		ownerScope, catalogItemID,
	).Scan(
		&item.InternalID, &item.CatalogItemID, &item.Title,
		&item.OwnerScope, &item.CreatedAt, &item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カタログ商品IDによるレコードの検索に失敗しました: %w", err)
	}

	if err := r.loadWindows(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Create はレコードとウィンドウを同一トランザクションで作成する。
func (r *PostgresScheduleRepo) Create(ctx context.Context, item *model.ScheduledItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scheduled_items (internal_id, catalog_item_id, title, owner_scope, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.InternalID, item.CatalogItemID, item.Title,
		item.OwnerScope, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("販売期間レコードの作成に失敗しました: %w", err)
	}

	if err := insertWindows(ctx, tx, item.InternalID, item.Windows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ReplaceWindows はウィンドウ列を全置換する。部分更新はしない。
func (r *PostgresScheduleRepo) ReplaceWindows(ctx context.Context, ownerScope, internalID string, windows []model.Window, updatedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE scheduled_items SET updated_at = $3
		 WHERE owner_scope = $1 AND internal_id = $2`,
		ownerScope, internalID, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("販売期間レコードの更新に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("更新対象のレコードが存在しません: %s", internalID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schedule_windows WHERE internal_item_id = $1`, internalID,
	); err != nil {
		return fmt.Errorf("既存ウィンドウの削除に失敗しました: %w", err)
	}

	if err := insertWindows(ctx, tx, internalID, windows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// UpdateTitle は非正規化タイトルを更新する。
func (r *PostgresScheduleRepo) UpdateTitle(ctx context.Context, ownerScope, internalID, title string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_items SET title = $3, updated_at = $4
		 WHERE owner_scope = $1 AND internal_id = $2`,
		ownerScope, internalID, title, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("タイトルの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定内部IDのレコードを削除する。ウィンドウはCASCADE削除される。
func (r *PostgresScheduleRepo) Delete(ctx context.Context, ownerScope, internalID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM scheduled_items WHERE owner_scope = $1 AND internal_id = $2`,
		ownerScope, internalID,
	)
	if err != nil {
		return fmt.Errorf("販売期間レコードの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByOwnerScope はマーチャントのレコード一覧をウィンドウ付きで返す。
func (r *PostgresScheduleRepo) ListByOwnerScope(ctx context.Context, ownerScope string, offset, limit int) ([]*model.ScheduledItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT internal_id, catalog_item_id, title, owner_scope, created_at, updated_at
		 FROM scheduled_items WHERE owner_scope = $1
		 ORDER BY created_at ASC
		 OFFSET $2 LIMIT $3`,
		ownerScope, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("販売期間レコード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.ScheduledItem
	for rows.Next() {
		item := &model.ScheduledItem{}
		if err := rows.Scan(
			&item.InternalID, &item.CatalogItemID, &item.Title,
			&item.OwnerScope, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("レコード行の読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レコード一覧の走査に失敗しました: %w", err)
	}

	for _, item := range items {
		if err := r.loadWindows(ctx, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// CountByOwnerScope はマーチャントのレコード総数を返す。
func (r *PostgresScheduleRepo) CountByOwnerScope(ctx context.Context, ownerScope string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_items WHERE owner_scope = $1`, ownerScope,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("レコード数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ListOwnerScopes はレコードを1件以上持つマーチャントスコープの一覧を返す。
func (r *PostgresScheduleRepo) ListOwnerScopes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_scope FROM scheduled_items ORDER BY owner_scope ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("マーチャントスコープ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("スコープ行の読み取りに失敗しました: %w", err)
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スコープ一覧の走査に失敗しました: %w", err)
	}
	return scopes, nil
}

// loadWindows はレコードのウィンドウ列をpositionの昇順（表示順）で読み込む。
func (r *PostgresScheduleRepo) loadWindows(ctx context.Context, item *model.ScheduledItem) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT merchandise_id, label, start_date, end_date
		 FROM schedule_windows WHERE internal_item_id = $1
		 ORDER BY position ASC`,
		item.InternalID,
	)
	if err != nil {
		return fmt.Errorf("ウィンドウの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	item.Windows = []model.Window{}
	for rows.Next() {
		var w model.Window
		var start, end time.Time
		if err := rows.Scan(&w.MerchandiseID, &w.Label, &start, &end); err != nil {
			return fmt.Errorf("ウィンドウ行の読み取りに失敗しました: %w", err)
		}
		w.Start = model.CalendarDate{Year: start.Year(), Month: start.Month(), Day: start.Day()}
		w.End = model.CalendarDate{Year: end.Year(), Month: end.Month(), Day: end.Day()}
		item.Windows = append(item.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ウィンドウの走査に失敗しました: %w", err)
	}
	return nil
}

// insertWindows はウィンドウ列をpositionつきで挿入する。
// DATE列にはカレンダー日付をUTC深夜0時のtime.Timeとして渡す
// （lib/pqはDATE型に時刻成分を持ち込まない）。
func insertWindows(ctx context.Context, tx *sql.Tx, internalID string, windows []model.Window) error {
	for i, w := range windows {
		start := time.Date(w.Start.Year, w.Start.Month, w.Start.Day, 0, 0, 0, 0, time.UTC)
		end := time.Date(w.End.Year, w.End.Month, w.End.Day, 0, 0, 0, 0, time.UTC)

		_, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_windows (internal_item_id, merchandise_id, label, start_date, end_date, position)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			internalID, w.MerchandiseID, w.Label, start, end, i,
		)
		if err != nil {
			return fmt.Errorf("ウィンドウの作成に失敗しました: %w", err)
		}
	}
	return nil
}
