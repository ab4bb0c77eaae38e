package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v50/github"
	"golang.org/x/oauth2"

	"github.com/douhashi/omakase/internal/logger"
)

// defaultCallTimeout は外部呼び出し1回あたりのタイムアウト
// 応答しないプロバイダーが投入パスやゲートパス全体を止めないための上限
const defaultCallTimeout = 30 * time.Second

// APIClient はGitHub APIクライアントの実装
//
// メタデータ・チェック・ラベル・コメントはGitHub REST APIで扱い、
// マージと自動マージの有効化はghコマンドに委譲する（auto-merge関連の
// 操作はGraphQL限定のため、ghが最も確実な経路になる）。
type APIClient struct {
	github      *github.Client
	executor    CommandExecutor
	owner       string
	repo        string
	callTimeout time.Duration
	logger      logger.Logger
}

// NewAPIClient は新しいAPIClientを作成する
func NewAPIClient(token, owner, repo string, log logger.Logger) (*APIClient, error) {
	if token == "" {
		return nil, errors.New("GitHub token is required")
	}
	if owner == "" {
		return nil, errors.New("owner is required")
	}
	if repo == "" {
		return nil, errors.New("repo is required")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &APIClient{
		github:      github.NewClient(tc),
		executor:    NewRealCommandExecutor(),
		owner:       owner,
		repo:        repo,
		callTimeout: defaultCallTimeout,
		logger:      log,
	}, nil
}

// SetExecutor はghコマンドの実行器を差し替える（テスト用）
func (c *APIClient) SetExecutor(executor CommandExecutor) {
	c.executor = executor
}

// GetPullRequestMetadata はPRのメタデータを取得する
func (c *APIClient) GetPullRequestMetadata(ctx context.Context, prNumber int) (*PRMetadata, error) {
	if prNumber <= 0 {
		return nil, errors.New("pr number must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	pr, _, err := c.github.PullRequests.Get(ctx, c.owner, c.repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", prNumber, err)
	}

	meta := &PRMetadata{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     convertState(pr),
		IsDraft:   pr.GetDraft(),
		Mergeable: convertMergeable(pr),
		HeadSHA:   pr.GetHead().GetSHA(),
		HeadRef:   pr.GetHead().GetRef(),
	}

	decision, err := c.reviewDecision(ctx, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get review decision for #%d: %w", prNumber, err)
	}
	meta.ReviewDecision = decision

	if c.logger != nil {
		c.logger.Debug("Got pull request metadata",
			"pr_number", meta.Number,
			"state", meta.State,
			"mergeable", meta.Mergeable,
			"is_draft", meta.IsDraft,
			"review_decision", meta.ReviewDecision,
		)
	}

	return meta, nil
}

// reviewDecision はレビュー一覧からレビュー判定を導出する
// レビュアーごとに最新のレビューだけを数え、1人でもchanges requestedなら
// CHANGES_REQUESTED、そうでなく承認があればAPPROVEDとなる
func (c *APIClient) reviewDecision(ctx context.Context, prNumber int) (ReviewDecision, error) {
	opts := &github.ListOptions{PerPage: 100}
	latest := make(map[string]string)

	for {
		reviews, resp, err := c.github.PullRequests.ListReviews(ctx, c.owner, c.repo, prNumber, opts)
		if err != nil {
			return ReviewNone, err
		}
		for _, review := range reviews {
			login := review.GetUser().GetLogin()
			if login == "" {
				continue
			}
			switch review.GetState() {
			case "APPROVED", "CHANGES_REQUESTED":
				latest[login] = review.GetState()
			case "DISMISSED":
				delete(latest, login)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	decision := ReviewNone
	for _, state := range latest {
		if state == "CHANGES_REQUESTED" {
			return ReviewChangesRequested, nil
		}
		if state == "APPROVED" {
			decision = ReviewApproved
		}
	}
	return decision, nil
}

// ListPullRequestChecks はPRのHEADコミットに対するチェック一覧を取得する
func (c *APIClient) ListPullRequestChecks(ctx context.Context, prNumber int) ([]CheckRun, error) {
	if prNumber <= 0 {
		return nil, errors.New("pr number must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	pr, _, err := c.github.PullRequests.Get(ctx, c.owner, c.repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", prNumber, err)
	}
	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return nil, fmt.Errorf("pull request #%d has no head commit", prNumber)
	}

	opts := &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var checks []CheckRun
	for {
		result, resp, err := c.github.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, sha, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list check runs for #%d: %w", prNumber, err)
		}
		for _, run := range result.CheckRuns {
			checks = append(checks, CheckRun{
				Name:       run.GetName(),
				Status:     run.GetStatus(),
				Conclusion: run.GetConclusion(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return checks, nil
}

// MergePullRequest は指定されたPRをマージする
func (c *APIClient) MergePullRequest(ctx context.Context, prNumber int) error {
	if prNumber <= 0 {
		return errors.New("pr number must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	// gh pr merge <pr-number> --squash --delete-branch
	args := []string{
		"pr", "merge",
		strconv.Itoa(prNumber),
		"--squash",
		"--delete-branch",
		"--repo", c.owner + "/" + c.repo,
	}

	if c.logger != nil {
		c.logger.Info("Merging pull request", "pr_number", prNumber)
	}

	if _, err := c.executor.Execute(ctx, "gh", args...); err != nil {
		return fmt.Errorf("failed to merge pull request #%d: %w", prNumber, err)
	}

	return nil
}

// EnableAutoMerge はCI通過時の自動マージをPRに対して有効化する
func (c *APIClient) EnableAutoMerge(ctx context.Context, prNumber int) error {
	if prNumber <= 0 {
		return errors.New("pr number must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	// gh pr merge <pr-number> --squash --auto
	args := []string{
		"pr", "merge",
		strconv.Itoa(prNumber),
		"--squash",
		"--auto",
		"--repo", c.owner + "/" + c.repo,
	}

	if c.logger != nil {
		c.logger.Info("Enabling auto-merge on pull request", "pr_number", prNumber)
	}

	if _, err := c.executor.Execute(ctx, "gh", args...); err != nil {
		return fmt.Errorf("failed to enable auto-merge on pull request #%d: %w", prNumber, err)
	}

	return nil
}

// AddLabelToIssue はIssueまたはPRにラベルを付与する
func (c *APIClient) AddLabelToIssue(ctx context.Context, issueNumber int, label string) error {
	if issueNumber <= 0 {
		return errors.New("issue number must be positive")
	}
	if label == "" {
		return errors.New("label is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	_, _, err := c.github.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, issueNumber, []string{label})
	if err != nil {
		return fmt.Errorf("failed to add label %q to issue #%d: %w", label, issueNumber, err)
	}

	return nil
}

// CreateIssueComment はIssueにコメントを投稿する
func (c *APIClient) CreateIssueComment(ctx context.Context, issueNumber int, body string) error {
	if issueNumber <= 0 {
		return errors.New("issue number must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	comment := &github.IssueComment{Body: github.String(body)}
	_, _, err := c.github.Issues.CreateComment(ctx, c.owner, c.repo, issueNumber, comment)
	if err != nil {
		return fmt.Errorf("failed to comment on issue #%d: %w", issueNumber, err)
	}

	return nil
}

// GetRateLimit はGitHub APIのレート制限情報を取得する
func (c *APIClient) GetRateLimit(ctx context.Context) (*github.RateLimits, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	rateLimit, _, err := c.github.RateLimits(ctx)
	if err != nil {
		return nil, err
	}

	return rateLimit, nil
}

// convertState はgo-githubのPR状態を内部表現に変換する
func convertState(pr *github.PullRequest) PRState {
	switch pr.GetState() {
	case "open":
		return PRStateOpen
	case "closed":
		if pr.GetMerged() {
			return PRStateMerged
		}
		return PRStateClosed
	}
	return PRStateUnknown
}

// convertMergeable はmergeabilityの三値を内部表現に変換する
// GitHub側で計算中の場合、Mergeableはnilになる
func convertMergeable(pr *github.PullRequest) MergeableState {
	if pr.Mergeable == nil {
		return MergeableUnknown
	}
	if pr.GetMergeable() {
		return Mergeable
	}
	return Conflicting
}

var _ Client = (*APIClient)(nil)
