package gate

import "strings"

// MatchesRequiredCheck は必須チェック名と観測されたチェック名を照合する
//
// 照合規則: 大文字小文字を区別しない部分文字列の包含を双方向で判定する。
// CIプロバイダーのチェック名はマトリクス次元のサフィックスが付くことが
// 多いため（例: 必須名 "test" と観測名 "CI / test (18.x)"）、完全一致では
// 運用に耐えない。照合ポリシーはこの関数だけが持つ。
func MatchesRequiredCheck(required, observed string) bool {
	if required == "" || observed == "" {
		return false
	}

	r := strings.ToLower(required)
	o := strings.ToLower(observed)

	return strings.Contains(o, r) || strings.Contains(r, o)
}
