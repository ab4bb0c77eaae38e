package gate

import "github.com/douhashi/omakase/internal/github"

// Result はCIチェック群を1つに集約したゲート判定
type Result string

const (
	ResultPass    Result = "pass"
	ResultFail    Result = "fail"
	ResultPending Result = "pending"
)

// PRStatus はゲートチェック時点でのPRのスナップショット
// 構築後に変更されることはない値型
type PRStatus struct {
	Result Result

	Checks []github.CheckRun

	// 必須チェック名ごとの判定結果
	PassedChecks  []string
	FailedChecks  []string
	PendingChecks []string

	Mergeable      github.MergeableState
	State          github.PRState
	Draft          bool
	ReviewDecision github.ReviewDecision

	// Summary は人間向けの要約（外部呼び出しの失敗もここに現れる）
	Summary string
}
