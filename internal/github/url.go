package github

import (
	"fmt"
	"regexp"
	"strings"
)

// RepoInfo はGitHubリポジトリの所有者とリポジトリ名
type RepoInfo struct {
	Owner string
	Repo  string
}

var (
	httpsURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?$`)
	sshURLPattern   = regexp.MustCompile(`^(?:ssh://)?git@github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?$`)
)

// ParseRepoURL はGitHubのURLからowner/repo情報を抽出する
// 以下の形式に対応:
//   - https://github.com/owner/repo(.git)
//   - git@github.com:owner/repo(.git)
//   - ssh://git@github.com/owner/repo(.git)
func ParseRepoURL(url string) (*RepoInfo, error) {
	for _, pattern := range []*regexp.Regexp{httpsURLPattern, sshURLPattern} {
		if matches := pattern.FindStringSubmatch(url); len(matches) == 3 {
			return &RepoInfo{
				Owner: matches[1],
				Repo:  strings.TrimSuffix(matches[2], ".git"),
			}, nil
		}
	}

	return nil, fmt.Errorf("invalid GitHub URL format: %s", url)
}
