package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBudget はサンドボックス実行のデフォルト時間予算。
const DefaultBudget = 50 * time.Millisecond

// Runner はエンジンの1回分のサンドボックス実行を司る。
// 固定の時間予算内での完了を強制し、panicを回復する。
// 予算超過はその実行の確定的な失敗であり、Runner内でのリトライは行わない
// （リトライ可否の判断はホストプラットフォーム側の責務）。
type Runner struct {
	engine *Engine
	budget time.Duration
	logger *slog.Logger
}

// NewRunner はRunnerの新しいインスタンスを生成する。
// budgetが0以下の場合はDefaultBudgetを使用する。
func NewRunner(engine *Engine, budget time.Duration, logger *slog.Logger) *Runner {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, budget: budget, logger: logger}
}

// Run は時間予算つきでエンジンを1回実行する。
// 予算超過・panicはエラーとして返し、結果は返さない。
func (r *Runner) Run(ctx context.Context, input *Input) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("検証エンジンの実行中にpanicが発生しました: %v", rec)}
			}
		}()
		done <- outcome{result: r.engine.Validate(input)}
	}()

	select {
	case <-ctx.Done():
		r.logger.Error("検証エンジンが時間予算を超過しました",
			slog.Duration("budget", r.budget),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("検証エンジンが時間予算を超過しました: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			r.logger.Error("検証エンジンの実行に失敗しました",
				slog.String("error", out.err.Error()),
			)
			return nil, out.err
		}
		return out.result, nil
	}
}
