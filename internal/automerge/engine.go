package automerge

import (
	"context"
	"fmt"

	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/gate"
	"github.com/douhashi/omakase/internal/github"
	"github.com/douhashi/omakase/internal/logger"
)

// Action はPRに対して実行（または決定）されたアクション
type Action string

const (
	// ActionMerged はPRをマージした
	ActionMerged Action = "merged"
	// ActionLabeled はレビュー待ちラベルを付与した
	ActionLabeled Action = "labeled"
	// ActionPending はチェック完了待ち（auto-merge有効化を含む）
	ActionPending Action = "pending"
	// ActionSkipped は戦略により対象外
	ActionSkipped Action = "skipped"
	// ActionFailed はマージ不能または外部呼び出しの失敗
	ActionFailed Action = "failed"
)

// Result は1つのPRに対する処理結果
//
// 外部呼び出しの失敗もErrorフィールドに値として現れる。Processが
// Goのエラーを返すことはなく、バッチ処理の境界を越えて伝播しない。
type Result struct {
	PRNumber int
	Success  bool
	Action   Action
	Message  string
	Error    error
	Status   *gate.PRStatus
}

// Options はProcessの挙動を調整する
type Options struct {
	// DryRun がtrueの場合、判定は通常どおり行うが書き込み操作は行わない
	DryRun bool
}

// Engine はPR戦略に従ってマージ処理を実行する
type Engine struct {
	client      github.Client
	checker     *gate.Checker
	strategy    config.PRStrategy
	reviewLabel string
	logger      logger.Logger
}

// NewEngine は新しいEngineを作成する
func NewEngine(client github.Client, checker *gate.Checker, strategy config.PRStrategy, reviewLabel string, log logger.Logger) *Engine {
	return &Engine{
		client:      client,
		checker:     checker,
		strategy:    strategy,
		reviewLabel: reviewLabel,
		logger:      log,
	}
}

// Process は1つのPRを戦略に従って処理する
//
// 戦略ごとの挙動:
//   - manual: 何もしない（skipped）
//   - review: ゲート通過でレビュー待ちラベルを付与、不合格ならfailed、それ以外はpending
//   - auto:   マージ可能ならマージ、チェック待ちならauto-mergeを有効化
func (e *Engine) Process(ctx context.Context, prNumber int, opts Options) *Result {
	if e.strategy == config.PRStrategyManual {
		return &Result{
			PRNumber: prNumber,
			Success:  true,
			Action:   ActionSkipped,
			Message:  e.message(opts, "manual strategy: no action taken"),
		}
	}

	status := e.checker.CheckStatus(ctx, prNumber)

	switch e.strategy {
	case config.PRStrategyReview:
		return e.processReview(ctx, prNumber, status, opts)
	case config.PRStrategyAuto:
		return e.processAuto(ctx, prNumber, status, opts)
	}

	return &Result{
		PRNumber: prNumber,
		Action:   ActionFailed,
		Error:    fmt.Errorf("unknown PR strategy: %s", e.strategy),
		Status:   status,
	}
}

// processReview はreview戦略の処理を行う
func (e *Engine) processReview(ctx context.Context, prNumber int, status *gate.PRStatus, opts Options) *Result {
	result := &Result{PRNumber: prNumber, Status: status}

	switch status.Result {
	case gate.ResultFail:
		result.Action = ActionFailed
		result.Error = fmt.Errorf("required checks failed: %s", status.Summary)
		return result
	case gate.ResultPending:
		result.Success = true
		result.Action = ActionPending
		result.Message = e.message(opts, status.Summary)
		return result
	}

	if !opts.DryRun {
		if err := e.client.AddLabelToIssue(ctx, prNumber, e.reviewLabel); err != nil {
			result.Action = ActionFailed
			result.Error = fmt.Errorf("failed to add review label: %w", err)
			return result
		}
	}

	if e.logger != nil {
		e.logger.Info("PR is ready for review",
			"pr_number", prNumber,
			"label", e.reviewLabel,
			"dry_run", opts.DryRun,
		)
	}

	result.Success = true
	result.Action = ActionLabeled
	result.Message = e.message(opts, fmt.Sprintf("added label %q", e.reviewLabel))
	return result
}

// processAuto はauto戦略の処理を行う
//
// マージ可否はゲート結果とは独立に、メタデータを取り直して判定する。
// CIチェックの判定とマージ機構の判定（mergeability・レビュー・open状態）を
// 別々に監査できるようにするための意図的な二重チェック。
func (e *Engine) processAuto(ctx context.Context, prNumber int, status *gate.PRStatus, opts Options) *Result {
	result := &Result{PRNumber: prNumber, Status: status}

	meta, err := e.client.GetPullRequestMetadata(ctx, prNumber)
	if err != nil {
		result.Action = ActionFailed
		result.Error = fmt.Errorf("failed to fetch PR metadata: %w", err)
		return result
	}

	if isReadyToMerge(status.Result, meta) {
		if !opts.DryRun {
			if err := e.client.MergePullRequest(ctx, prNumber); err != nil {
				result.Action = ActionFailed
				result.Error = fmt.Errorf("failed to merge PR #%d: %w", prNumber, err)
				return result
			}
		}

		if e.logger != nil {
			e.logger.Info("PR merged",
				"pr_number", prNumber,
				"dry_run", opts.DryRun,
			)
		}

		result.Success = true
		result.Action = ActionMerged
		result.Message = e.message(opts, "merged")
		return result
	}

	if status.Result == gate.ResultPending && meta.State == github.PRStateOpen && !meta.IsDraft {
		// チェック完了待ち。auto-mergeを有効化してプロバイダー側に委ねる
		if !opts.DryRun {
			if err := e.client.EnableAutoMerge(ctx, prNumber); err != nil {
				result.Action = ActionFailed
				result.Error = fmt.Errorf("failed to enable auto-merge for PR #%d: %w", prNumber, err)
				return result
			}
		}

		result.Success = true
		result.Action = ActionPending
		result.Message = e.message(opts, "auto-merge enabled: "+status.Summary)
		return result
	}

	result.Action = ActionFailed
	result.Error = fmt.Errorf("PR #%d is not mergeable: %s", prNumber, notReadyReason(status, meta))
	return result
}

// ProcessMultiple は複数のPRを順に処理する
//
// 1つのPRの失敗は他のPRの処理に影響しない。結果はPR番号で引ける。
func (e *Engine) ProcessMultiple(ctx context.Context, prNumbers []int, opts Options) map[int]*Result {
	results := make(map[int]*Result, len(prNumbers))
	for _, prNumber := range prNumbers {
		results[prNumber] = e.Process(ctx, prNumber, opts)
	}
	return results
}

func (e *Engine) message(opts Options, msg string) string {
	if opts.DryRun {
		return "[dry-run] " + msg
	}
	return msg
}

// isReadyToMerge はPRが即時マージ可能かを判定する
func isReadyToMerge(gateResult gate.Result, meta *github.PRMetadata) bool {
	return gateResult == gate.ResultPass &&
		meta.State == github.PRStateOpen &&
		!meta.IsDraft &&
		meta.Mergeable == github.Mergeable &&
		meta.ReviewDecision != github.ReviewChangesRequested
}

// notReadyReason はマージ不能な理由を説明する
func notReadyReason(status *gate.PRStatus, meta *github.PRMetadata) string {
	switch {
	case status.Result == gate.ResultFail:
		return status.Summary
	case meta.State != github.PRStateOpen:
		return fmt.Sprintf("state is %s", meta.State)
	case meta.IsDraft:
		return "pull request is a draft"
	case meta.Mergeable == github.Conflicting:
		return "merge conflicts must be resolved"
	case meta.ReviewDecision == github.ReviewChangesRequested:
		return "changes have been requested"
	case meta.Mergeable == github.MergeableUnknown:
		return "mergeability is not yet known"
	}
	return status.Summary
}
