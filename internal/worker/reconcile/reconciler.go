// Package reconcile はレコードストアと外部カタログの定期照合処理を提供する。
// レコードストアを正本として各マーチャントの公開文書を再導出・再公開し、
// カタログ側の手動変更や削除による逸脱を修復する。
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultMaxConcurrency はスコープ照合のデフォルト最大並列数。
const defaultMaxConcurrency = 4

// ScopeLister は照合対象のマーチャントスコープ一覧の取得インターフェース。
// repository.ScheduleRepositoryの部分集合として定義する。
type ScopeLister interface {
	ListOwnerScopes(ctx context.Context) ([]string, error)
}

// ScheduleReconciler はマーチャント1件分の照合実行インターフェース。
// schedule.Serviceを抽象化する。
type ScheduleReconciler interface {
	// Reconcile はマーチャントの全スケジュールの公開文書を再公開し、
	// 再公開に成功した件数を返す。
	Reconcile(ctx context.Context, ownerScope string) (int, error)
}

// Reconciler は照合サイクルのスケジューリングと並列制御を行う。
// ティッカー間隔でマーチャントスコープを巡回し、semaphoreパターンで
// 最大並列数を制御しながら照合を実行する。
type Reconciler struct {
	scopes         ScopeLister
	service        ScheduleReconciler
	logger         *slog.Logger
	maxConcurrency int
}

// NewReconciler はReconcilerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
// カタログAPIにはスコープごとのコスト上限があるため、並列数は控えめにする。
func NewReconciler(
	scopes ScopeLister,
	service ScheduleReconciler,
	logger *slog.Logger,
	maxConcurrency int,
) *Reconciler {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		scopes:         scopes,
		service:        service,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーで照合ワーカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("照合ワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", r.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("照合サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("照合ワーカーを停止しました")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("照合サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は全マーチャントスコープを1回照合する。
// semaphoreパターンで並列数を制御し、個々のスコープの失敗では中断しない。
func (r *Reconciler) RunOnce(ctx context.Context) error {
	start := time.Now()

	scopes, err := r.scopes.ListOwnerScopes(ctx)
	if err != nil {
		return err
	}

	if len(scopes) == 0 {
		r.logger.Info("照合対象のマーチャントはありません")
		return nil
	}

	r.logger.Info("照合サイクルを開始します",
		slog.Int("scope_count", len(scopes)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, r.maxConcurrency)
	var wg sync.WaitGroup

	for _, scope := range scopes {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(ownerScope string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			republished, err := r.service.Reconcile(ctx, ownerScope)
			if err != nil {
				r.logger.Error("マーチャントの照合に失敗しました",
					slog.String("owner_scope", ownerScope),
					slog.Int("republished", republished),
					slog.String("error", err.Error()),
				)
				return
			}

			r.logger.Info("マーチャントの照合が完了しました",
				slog.String("owner_scope", ownerScope),
				slog.Int("republished", republished),
			)
		}(scope)
	}

	wg.Wait()

	duration := time.Since(start)
	r.logger.Info("照合サイクルが完了しました",
		slog.Int("scope_count", len(scopes)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
