package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/douhashi/omakase/internal/github"
	"github.com/douhashi/omakase/internal/logger"
)

// Checker は外部ステータスプロバイダーを照会してゲート判定を行う
//
// 読み取り専用・冪等であり、何度呼んでも安全。外部呼び出しの失敗は
// エラーとして伝播させず、state UNKNOWN / pending のステータスに畳み込む。
type Checker struct {
	client         github.Client
	requiredChecks []string
	logger         logger.Logger
}

// NewChecker は新しいCheckerを作成する
func NewChecker(client github.Client, requiredChecks []string, log logger.Logger) *Checker {
	return &Checker{
		client:         client,
		requiredChecks: requiredChecks,
		logger:         log,
	}
}

// CheckStatus はPRの現在のゲート状態を取得する
//
// 集約は以下の優先順で行う:
//  1. ドラフトPRはチェック結果にかかわらずpending
//  2. 必須チェック名を観測されたチェック名と柔軟照合で突き合わせる
//  3. 観測されないままの必須チェックはpending扱い（failとは混同しない）
//  4. success/neutral/skippedは合格、failure/cancelled/timed_out/action_requiredは不合格
//  5. 1つでも不合格ならfail、未完・未観測が残ればpending、すべて合格ならpass
//  6. 必須チェックが空ならドラフトでない限りpass
func (c *Checker) CheckStatus(ctx context.Context, prNumber int) *PRStatus {
	meta, err := c.client.GetPullRequestMetadata(ctx, prNumber)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("Failed to fetch PR metadata",
				"pr_number", prNumber,
				"error", err,
			)
		}
		return &PRStatus{
			Result:         ResultPending,
			State:          github.PRStateUnknown,
			Mergeable:      github.MergeableUnknown,
			ReviewDecision: github.ReviewNone,
			Summary:        fmt.Sprintf("failed to fetch PR metadata: %v", err),
		}
	}

	status := &PRStatus{
		State:          meta.State,
		Draft:          meta.IsDraft,
		Mergeable:      meta.Mergeable,
		ReviewDecision: meta.ReviewDecision,
	}

	checks, err := c.client.ListPullRequestChecks(ctx, prNumber)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("Failed to fetch PR checks",
				"pr_number", prNumber,
				"error", err,
			)
		}
		status.Result = ResultPending
		status.Summary = fmt.Sprintf("failed to fetch checks: %v", err)
		return status
	}
	status.Checks = checks

	c.reduce(status)

	// ドラフトは常にゲートを通過しない
	if meta.IsDraft {
		status.Result = ResultPending
		status.Summary = "pull request is a draft"
	}

	if c.logger != nil {
		c.logger.Debug("Gate check completed",
			"pr_number", prNumber,
			"result", status.Result,
			"passed", status.PassedChecks,
			"failed", status.FailedChecks,
			"pending", status.PendingChecks,
		)
	}

	return status
}

// reduce は観測されたチェックを必須チェック名で仕分けて判定を集約する
func (c *Checker) reduce(status *PRStatus) {
	if len(c.requiredChecks) == 0 {
		// 必須チェックが設定されていなければチェック一覧は判定に寄与しない
		status.Result = ResultPass
		status.Summary = "no required checks configured"
		return
	}

	for _, required := range c.requiredChecks {
		verdict := requiredCheckVerdict(required, status.Checks)
		switch verdict {
		case ResultFail:
			status.FailedChecks = append(status.FailedChecks, required)
		case ResultPending:
			status.PendingChecks = append(status.PendingChecks, required)
		case ResultPass:
			status.PassedChecks = append(status.PassedChecks, required)
		}
	}

	switch {
	case len(status.FailedChecks) > 0:
		status.Result = ResultFail
		status.Summary = fmt.Sprintf("%d of %d required checks failed: %s",
			len(status.FailedChecks), len(c.requiredChecks), strings.Join(status.FailedChecks, ", "))
	case len(status.PendingChecks) > 0:
		status.Result = ResultPending
		status.Summary = fmt.Sprintf("waiting for required checks: %s",
			strings.Join(status.PendingChecks, ", "))
	default:
		status.Result = ResultPass
		status.Summary = fmt.Sprintf("all %d required checks passed", len(c.requiredChecks))
	}
}

// requiredCheckVerdict は1つの必須チェック名に対する判定を返す
//
// 照合する観測チェックが1つもない場合はpending。まだ開始されていない
// 可能性があるため、観測なしを失敗として扱ってはならない。マトリクスで
// 複数の観測が照合した場合は、1つでも不合格なら不合格、未完が残れば
// pending、すべて合格なら合格。
func requiredCheckVerdict(required string, checks []github.CheckRun) Result {
	matched := false
	pending := false

	for _, check := range checks {
		if !MatchesRequiredCheck(required, check.Name) {
			continue
		}
		matched = true

		switch classifyCheck(check) {
		case ResultFail:
			return ResultFail
		case ResultPending:
			pending = true
		}
	}

	if !matched || pending {
		return ResultPending
	}
	return ResultPass
}

// classifyCheck は1つのチェック実行を合格/不合格/実行中に分類する
func classifyCheck(check github.CheckRun) Result {
	if !check.Completed() {
		return ResultPending
	}

	switch check.Conclusion {
	case "success", "neutral", "skipped":
		return ResultPass
	case "failure", "cancelled", "timed_out", "action_required":
		return ResultFail
	}

	// 完了済みで未知のconclusionは安全側に倒してpending
	return ResultPending
}
