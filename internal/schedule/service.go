// Package schedule は販売期間スケジュールのドメインロジックを提供する。
// レコードストアと外部カタログメタデータへの二重書き込みを統括する。
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/hitoshi/salesperiod/internal/metrics"
	"github.com/hitoshi/salesperiod/internal/model"
	"github.com/hitoshi/salesperiod/internal/repository"
	"github.com/hitoshi/salesperiod/internal/security"
)

// reconcilePageSize は照合処理で1回に読み込むレコード件数。
const reconcilePageSize = 50

// CatalogGateway は外部カタログとの連携機能のインターフェース。
// テスタビリティのためcatalog.Clientを抽象化する。
type CatalogGateway interface {
	Publish(ctx context.Context, doc *model.PublishedDocument) ([]byte, error)
	Retract(ctx context.Context, catalogItemID string) error
	FetchItemTitle(ctx context.Context, catalogItemID string) (string, error)
}

// Service は販売期間スケジュールのサービス層。
// 書き込みの順序は常に「カタログへの公開 → レコードストアへの反映」。
// 公開に失敗した書き込みはレコードストアに到達しない。
type Service struct {
	repo      repository.ScheduleRepository
	catalog   CatalogGateway
	sanitizer security.TitleSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.ScheduleRepository,
	catalog CatalogGateway,
	sanitizer security.TitleSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
	}
}

// Create は新しい販売期間スケジュールを登録する。
// フロー: 検証 → 競合チェック → サニタイズ → カタログへ公開 → レコードストアへ作成
// 同一カタログ商品への2件目の登録は競合エラーになる（暗黙マージはしない）。
func (s *Service) Create(ctx context.Context, ownerScope, catalogItemID, title string, windows []model.Window) (*model.ScheduledItem, error) {
	if catalogItemID == "" {
		return nil, model.NewEmptyCatalogItemIDError()
	}
	if err := model.ValidateWindows(windows); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByCatalogItemID(ctx, ownerScope, catalogItemID)
	if err != nil {
		s.logger.Error("スケジュールの競合チェックに失敗しました",
			slog.String("catalog_item_id", catalogItemID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageFailedError()
	}
	if existing != nil {
		return nil, model.NewScheduleConflictError(catalogItemID)
	}

	now := time.Now()
	item := &model.ScheduledItem{
		InternalID:    uuid.New().String(),
		CatalogItemID: catalogItemID,
		Title:         s.sanitizer.Sanitize(title),
		OwnerScope:    ownerScope,
		CreatedAt:     now,
		UpdatedAt:     now,
		Windows:       s.sanitizeLabels(windows),
	}

	// 公開が先。失敗時はレコードストアに何も書かない
	if err := s.publish(ctx, item); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("スケジュールの保存に失敗しました",
			slog.String("internal_id", item.InternalID),
			slog.String("catalog_item_id", catalogItemID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageFailedError()
	}

	return item, nil
}

// Get は指定内部IDのスケジュールを取得する。
func (s *Service) Get(ctx context.Context, ownerScope, internalID string) (*model.ScheduledItem, error) {
	item, err := s.repo.FindByID(ctx, ownerScope, internalID)
	if err != nil {
		return nil, model.NewStorageFailedError()
	}
	if item == nil {
		return nil, model.NewScheduleNotFoundError(internalID)
	}
	return item, nil
}

// List はマーチャントのスケジュール一覧と総件数を返す。
func (s *Service) List(ctx context.Context, ownerScope string, offset, limit int) ([]*model.ScheduledItem, int, error) {
	items, err := s.repo.ListByOwnerScope(ctx, ownerScope, offset, limit)
	if err != nil {
		return nil, 0, model.NewStorageFailedError()
	}
	total, err := s.repo.CountByOwnerScope(ctx, ownerScope)
	if err != nil {
		return nil, 0, model.NewStorageFailedError()
	}
	return items, total, nil
}

// ReplaceWindows はスケジュールのウィンドウ列を全置換する。
// フロー: 取得 → 検証 → サニタイズ → 新しい射影をカタログへ公開 → レコードストアを置換
func (s *Service) ReplaceWindows(ctx context.Context, ownerScope, internalID string, windows []model.Window) (*model.ScheduledItem, error) {
	item, err := s.repo.FindByID(ctx, ownerScope, internalID)
	if err != nil {
		return nil, model.NewStorageFailedError()
	}
	if item == nil {
		return nil, model.NewScheduleNotFoundError(internalID)
	}

	if err := model.ValidateWindows(windows); err != nil {
		return nil, err
	}

	item.Windows = s.sanitizeLabels(windows)
	item.UpdatedAt = time.Now()

	if err := s.publish(ctx, item); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceWindows(ctx, ownerScope, internalID, item.Windows, item.UpdatedAt); err != nil {
		s.logger.Error("ウィンドウの置換に失敗しました",
			slog.String("internal_id", internalID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageFailedError()
	}

	return item, nil
}

// Delete はスケジュールを削除する。
// フロー: 取得 → カタログから公開文書を削除 → レコードストアから削除
// 公開文書の不在は「制限なし」を意味するため、カタログ側の削除に失敗した場合は
// レコードストアの削除も行わない（幽霊の制限を残さないため逆ではなくこの順）。
func (s *Service) Delete(ctx context.Context, ownerScope, internalID string) error {
	item, err := s.repo.FindByID(ctx, ownerScope, internalID)
	if err != nil {
		return model.NewStorageFailedError()
	}
	if item == nil {
		return model.NewScheduleNotFoundError(internalID)
	}

	if err := s.catalog.Retract(ctx, item.CatalogItemID); err != nil {
		s.recordRetract(false)
		return model.NewRetractFailedError()
	}
	s.recordRetract(true)

	if err := s.repo.Delete(ctx, ownerScope, internalID); err != nil {
		s.logger.Error("スケジュールの削除に失敗しました",
			slog.String("internal_id", internalID),
			slog.String("error", err.Error()),
		)
		return model.NewStorageFailedError()
	}

	return nil
}

// SyncTitle はカタログ側の現在のタイトルを取得し、非正規化コピーと
// 公開文書のタイトルを更新する。
func (s *Service) SyncTitle(ctx context.Context, ownerScope, internalID string) (*model.ScheduledItem, error) {
	item, err := s.repo.FindByID(ctx, ownerScope, internalID)
	if err != nil {
		return nil, model.NewStorageFailedError()
	}
	if item == nil {
		return nil, model.NewScheduleNotFoundError(internalID)
	}

	rawTitle, err := s.catalog.FetchItemTitle(ctx, item.CatalogItemID)
	if err != nil {
		s.logger.Error("カタログタイトルの取得に失敗しました",
			slog.String("catalog_item_id", item.CatalogItemID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPublishFailedError()
	}

	item.Title = s.sanitizer.Sanitize(rawTitle)
	item.UpdatedAt = time.Now()

	if err := s.publish(ctx, item); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTitle(ctx, ownerScope, internalID, item.Title, item.UpdatedAt); err != nil {
		return nil, model.NewStorageFailedError()
	}

	return item, nil
}

// ReconcileItem はレコードストアの内容からカタログの公開文書を再導出して
// 上書きする。カタログ側が手動変更・削除などで逸脱した場合の復旧手段。
func (s *Service) ReconcileItem(ctx context.Context, ownerScope, internalID string) error {
	item, err := s.repo.FindByID(ctx, ownerScope, internalID)
	if err != nil {
		return model.NewStorageFailedError()
	}
	if item == nil {
		return model.NewScheduleNotFoundError(internalID)
	}
	return s.publish(ctx, item)
}

// Reconcile はマーチャントの全スケジュールについて公開文書を再公開する。
// 個々の失敗では中断せず、最後に失敗をまとめて返す。
// 戻り値は再公開に成功した件数。
func (s *Service) Reconcile(ctx context.Context, ownerScope string) (int, error) {
	republished := 0
	var errs *multierror.Error

	for offset := 0; ; offset += reconcilePageSize {
		items, err := s.repo.ListByOwnerScope(ctx, ownerScope, offset, reconcilePageSize)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err))
			break
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if ctx.Err() != nil {
				errs = multierror.Append(errs, ctx.Err())
				return republished, errs.ErrorOrNil()
			}
			if err := s.publish(ctx, item); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("再公開に失敗しました (%s): %w", item.CatalogItemID, err))
				continue
			}
			republished++
		}

		if len(items) < reconcilePageSize {
			break
		}
	}

	if s.metrics != nil {
		s.metrics.RecordReconcileCycle(republished)
	}

	return republished, errs.ErrorOrNil()
}

// publish はスケジュールから公開文書を導出してカタログへ書き込む。
func (s *Service) publish(ctx context.Context, item *model.ScheduledItem) error {
	doc := model.ProjectPublished(item)
	if _, err := s.catalog.Publish(ctx, doc); err != nil {
		s.recordPublish(false)
		return model.NewPublishFailedError()
	}
	s.recordPublish(true)
	return nil
}

// sanitizeLabels はウィンドウの表示ラベルをサニタイズしたコピーを返す。
func (s *Service) sanitizeLabels(windows []model.Window) []model.Window {
	out := make([]model.Window, len(windows))
	for i, w := range windows {
		w.Label = s.sanitizer.Sanitize(w.Label)
		out[i] = w
	}
	return out
}

func (s *Service) recordPublish(success bool) {
	if s.metrics == nil {
		return
	}
	if success {
		s.metrics.RecordPublishSuccess()
	} else {
		s.metrics.RecordPublishFailure()
	}
}

func (s *Service) recordRetract(success bool) {
	if s.metrics == nil {
		return
	}
	if success {
		s.metrics.RecordRetractSuccess()
	} else {
		s.metrics.RecordRetractFailure()
	}
}
