package admission

import (
	"context"
	"fmt"

	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/feature"
	"github.com/douhashi/omakase/internal/github"
	"github.com/douhashi/omakase/internal/logger"
)

// Skip は投入されなかったフィーチャーとその理由
type Skip struct {
	FeatureID string
	Reason    string
}

// DispatchError は投入操作の失敗
type DispatchError struct {
	FeatureID string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch feature %s: %v", e.FeatureID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Report はlabelEligibleFeatures 1回分の結果
type Report struct {
	Labeled []string
	Skipped []Skip
	Errors  []*DispatchError
}

// Options は投入パスの挙動を調整する
type Options struct {
	// MaxToLabel は今回の呼び出しで投入する上限（0は無制限 = 設定値のみで制限）
	MaxToLabel int
	// DryRun がtrueの場合、判定と枠の消費は通常どおり行うが外部への書き込みは行わない
	DryRun bool
}

// Controller はフィーチャーのワーカー投入を制御する
//
// 同時稼働ワーカー数の上限はこのコントローラーの勘定だけで守られる。
// ロックは使わず、1回の投入パス内の順次処理で決定性を保証する。
type Controller struct {
	client github.Client
	store  *feature.Store
	cfg    *config.AutopilotConfig
	logger logger.Logger
}

// NewController は新しいControllerを作成する
func NewController(client github.Client, store *feature.Store, cfg *config.AutopilotConfig, log logger.Logger) *Controller {
	return &Controller{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: log,
	}
}

// LabelEligibleFeatures は投入可能なフィーチャーを上限までワーカーに投入する
//
// フィーチャーはリスト順に走査する。各フィーチャーについて、まず枠の
// 残りを確認し、上限に達していれば適格性を評価せずに "limit reached" で
// スキップする。枠の確認を先に行うのは、枠切れによるスキップと不適格に
// よるスキップをリスト順で決定的に区別して報告するため。
//
// 投入の失敗はErrorsに記録され、枠を消費しない。1件の失敗は後続の
// フィーチャーの処理を止めない。
func (c *Controller) LabelEligibleFeatures(ctx context.Context, opts Options) *Report {
	report := &Report{}

	limit := c.cfg.MaxConcurrentWorkers
	if opts.MaxToLabel > 0 && opts.MaxToLabel < limit {
		limit = opts.MaxToLabel
	}

	list := c.store.List()
	for i := range list.Features {
		f := &list.Features[i]

		if len(report.Labeled) >= limit {
			report.Skipped = append(report.Skipped, Skip{FeatureID: f.ID, Reason: "limit reached"})
			continue
		}

		eligibility := CheckEligibility(f, list.Features)
		if !eligibility.Eligible {
			report.Skipped = append(report.Skipped, Skip{FeatureID: f.ID, Reason: eligibility.Reason})
			continue
		}

		branch := BranchName(c.cfg.BranchPattern, f.ID)

		if err := c.dispatch(ctx, f, branch, opts.DryRun); err != nil {
			report.Errors = append(report.Errors, &DispatchError{FeatureID: f.ID, Err: err})
			continue
		}

		if c.logger != nil {
			c.logger.Info("Feature dispatched to worker",
				"feature_id", f.ID,
				"branch", branch,
				"label", c.cfg.WorkerLabel,
				"dry_run", opts.DryRun,
			)
		}

		report.Labeled = append(report.Labeled, f.ID)
	}

	return report
}

// RetryDispatch は失敗に終わった投入を同じパス内でやり直す
//
// LabelEligibleFeaturesが報告したDispatchErrorのフィーチャーに対して
// 呼び出し側（監視ループのケイデンス層）が使う。適格性と枠の判定は
// 元のパスで済んでいるため、ここでは投入の副作用だけを再実行する。
func (c *Controller) RetryDispatch(ctx context.Context, featureID string, opts Options) error {
	f := c.store.List().FindByID(featureID)
	if f == nil {
		return fmt.Errorf("feature %s not found", featureID)
	}

	branch := BranchName(c.cfg.BranchPattern, f.ID)
	return c.dispatch(ctx, f, branch, opts.DryRun)
}

// dispatch は1フィーチャーの投入の副作用を実行する
//
// ワーカーコンテキストをIssueコメントとして添付し、ワーカーラベルを
// 付与して外部の自動化システムに拾わせ、フィーチャーリスト上の状態を
// 投入済みに進める。dry-runでは判定のみ行い副作用をすべてスキップする。
func (c *Controller) dispatch(ctx context.Context, f *feature.Feature, branch string, dryRun bool) error {
	if dryRun {
		return nil
	}

	workerContext := BuildWorkerContext(f, branch, c.cfg.WorkerTimeout)
	if err := c.client.CreateIssueComment(ctx, f.GitHubIssue, workerContext); err != nil {
		return fmt.Errorf("failed to attach worker context: %w", err)
	}

	if err := c.client.AddLabelToIssue(ctx, f.GitHubIssue, c.cfg.WorkerLabel); err != nil {
		return fmt.Errorf("failed to add worker label: %w", err)
	}

	if err := c.store.MarkDispatched(f.ID, branch); err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}

	return nil
}
