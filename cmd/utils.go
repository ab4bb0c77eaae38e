package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/github"
)

// resolveRepo は設定からowner/repoを決定する
// 設定にない場合はカレントリポジトリのorigin remoteから推測する
func resolveRepo(ctx context.Context, cfg *config.Config) (string, string, error) {
	if cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		return cfg.GitHub.Owner, cfg.GitHub.Repo, nil
	}

	executor := github.NewRealCommandExecutor()
	out, err := executor.Execute(ctx, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", "", fmt.Errorf("github.owner/github.repo are not configured and the origin remote could not be read: %w", err)
	}

	info, err := github.ParseRepoURL(strings.TrimSpace(out))
	if err != nil {
		return "", "", fmt.Errorf("failed to determine repository from origin remote: %w", err)
	}

	return info.Owner, info.Repo, nil
}

// newGitHubClient は設定からAPIクライアントを組み立てる
func newGitHubClient(ctx context.Context, cfg *config.Config) (github.Client, error) {
	if cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("GitHub token is not configured (set github.token or the GITHUB_TOKEN environment variable)")
	}

	owner, repo, err := resolveRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return github.NewAPIClient(cfg.GitHub.Token, owner, repo, appLog)
}
