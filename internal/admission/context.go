package admission

import (
	"fmt"
	"strings"

	"github.com/douhashi/omakase/internal/feature"
)

// BuildWorkerContext はワーカーに渡すコンテキストドキュメントを生成する
//
// トラッキングIssueへのコメントとして投稿され、外部の自動化システムが
// 作業指示として読み取る。Markdown形式。
func BuildWorkerContext(f *feature.Feature, branch, timeout string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Worker Context: %s\n\n", f.Name)
	fmt.Fprintf(&b, "**Feature ID:** `%s`\n", f.ID)
	fmt.Fprintf(&b, "**Branch:** `%s`\n", branch)
	if timeout != "" {
		fmt.Fprintf(&b, "**Timeout:** %s\n", timeout)
	}
	if f.Sprint > 0 {
		fmt.Fprintf(&b, "**Sprint:** %d\n", f.Sprint)
	}
	b.WriteString("\n")

	if f.Description != "" {
		b.WriteString("### Description\n\n")
		b.WriteString(f.Description)
		b.WriteString("\n\n")
	}

	if len(f.Steps) > 0 {
		b.WriteString("### Steps\n\n")
		for _, s := range f.Steps {
			mark := " "
			if s.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, s.Description)
		}
		b.WriteString("\n")
	}

	if len(f.AcceptanceCriteria) > 0 {
		b.WriteString("### Acceptance Criteria\n\n")
		for _, c := range f.AcceptanceCriteria {
			mark := " "
			if c.Verified {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, c.Description)
		}
		b.WriteString("\n")
	}

	if len(f.DependsOn) > 0 {
		fmt.Fprintf(&b, "**Depends on:** %s\n", strings.Join(f.DependsOn, ", "))
	}

	return b.String()
}
