package logger

import (
	"regexp"
	"strings"
)

// センシティブなキーのパターン（大文字小文字を区別しない）
var sensitiveKeyPatterns = []string{
	"password",
	"token",
	"secret",
	"github_token",
	"authorization",
	"credential",
	"access_token",
}

// センシティブな値のパターン（正規表現）
var sensitiveValuePatterns = []*regexp.Regexp{
	// GitHub personal access tokens (ghp_ + 36文字)
	regexp.MustCompile(`^ghp_[A-Za-z0-9]{36,}$`),
	// GitHub app tokens (ghs_ + 36文字)
	regexp.MustCompile(`^ghs_[A-Za-z0-9]{36,}$`),
	// GitHub fine-grained tokens
	regexp.MustCompile(`^github_pat_[A-Za-z0-9_]{36,}$`),
	// Authorization Bearer tokens
	regexp.MustCompile(`(?i)^Bearer\s+[A-Za-z0-9\-_\.]{20,}$`),
	// Token headers
	regexp.MustCompile(`(?i)^token\s+[A-Za-z0-9\-_\.]{20,}$`),
}

// SanitizeArgs はログ引数（key-valueペア）をサニタイズする
func SanitizeArgs(args ...interface{}) []interface{} {
	if len(args) == 0 {
		return args
	}

	sanitized := make([]interface{}, len(args))
	copy(sanitized, args)

	// 偶数インデックスがkey、奇数インデックスがvalue
	for i := 0; i < len(sanitized)-1; i += 2 {
		if key, ok := sanitized[i].(string); ok {
			sanitized[i+1] = sanitizeKeyValue(key, sanitized[i+1])
		}
	}

	return sanitized
}

// sanitizeKeyValue はキーと値の組み合わせをチェックし、センシティブな情報をマスクする
func sanitizeKeyValue(key string, value interface{}) interface{} {
	if isSensitiveKey(key) {
		return maskValue(value)
	}
	if isSensitiveValue(value) {
		return maskValue(value)
	}
	return value
}

// isSensitiveKey はキーがセンシティブかどうかを判定する
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	for _, pattern := range sensitiveKeyPatterns {
		if lowerKey == pattern ||
			strings.HasPrefix(lowerKey, pattern+"_") ||
			strings.HasSuffix(lowerKey, "_"+pattern) {
			return true
		}
	}

	return false
}

// isSensitiveValue は値がセンシティブかどうかを判定する
func isSensitiveValue(value interface{}) bool {
	str, ok := value.(string)
	if !ok || str == "" {
		return false
	}

	for _, pattern := range sensitiveValuePatterns {
		if pattern.MatchString(str) {
			return true
		}
	}

	return false
}

// maskValue はセンシティブな値をマスクする（識別可能なプレフィックスは保持）
func maskValue(value interface{}) string {
	str, ok := value.(string)
	if !ok || str == "" {
		return "***MASKED***"
	}

	for _, prefix := range []string{"ghp_", "ghs_", "github_pat_", "Bearer ", "token "} {
		if strings.HasPrefix(str, prefix) {
			return prefix + "***MASKED***"
		}
	}

	return "***MASKED***"
}
