package admission

import (
	"regexp"
	"strings"
)

const featureIDPlaceholder = "{feature-id}"

var branchSanitizePattern = regexp.MustCompile(`[^a-z0-9-]+`)

// BranchName はブランチ名パターンからワーカー用のブランチ名を導出する
//
// {feature-id}を置換したうえで小文字化し、[a-z0-9-]以外の文字は
// ハイフンに潰す。連続するハイフンと先頭末尾のハイフンは取り除く。
func BranchName(pattern, featureID string) string {
	name := strings.ReplaceAll(pattern, featureIDPlaceholder, featureID)
	name = strings.ToLower(name)
	name = branchSanitizePattern.ReplaceAllString(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}
