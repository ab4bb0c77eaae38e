package github

import (
	"context"

	"github.com/google/go-github/v50/github"
)

// Client はこのコアが依存する外部コラボレーターの契約
//
// すべてのメソッドは読み取りまたは単発の変更を行う短命な往復であり、
// 暗黙のリトライは行わない。失敗は必ずエラーとして返り、呼び出し側が
// 結果オブジェクトに取り込む。
type Client interface {
	// GetPullRequestMetadata はPRのメタデータを取得する
	GetPullRequestMetadata(ctx context.Context, prNumber int) (*PRMetadata, error)
	// ListPullRequestChecks はPRのHEADに対するCIチェック一覧を取得する
	ListPullRequestChecks(ctx context.Context, prNumber int) ([]CheckRun, error)
	// MergePullRequest は指定されたPRをマージする
	MergePullRequest(ctx context.Context, prNumber int) error
	// EnableAutoMerge はCI通過時の自動マージをPRに対して有効化する
	EnableAutoMerge(ctx context.Context, prNumber int) error
	// AddLabelToIssue はIssueまたはPRにラベルを付与する
	AddLabelToIssue(ctx context.Context, issueNumber int, label string) error
	// CreateIssueComment はIssueにコメントを投稿する
	CreateIssueComment(ctx context.Context, issueNumber int, body string) error
	// GetRateLimit はGitHub APIのレート制限情報を取得する
	GetRateLimit(ctx context.Context) (*github.RateLimits, error)
}
