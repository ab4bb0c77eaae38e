package watcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v50/github"

	"github.com/douhashi/omakase/internal/logger"
)

// cycleRetries は監視サイクル内でのリトライ回数の上限
const cycleRetries = 3

// retryDelay はリトライの基準遅延を返す
// ポーリング間隔が1秒未満の場合（テスト設定）は短い遅延を使う
func retryDelay(pollInterval time.Duration) time.Duration {
	if pollInterval < time.Second {
		return 100 * time.Millisecond
	}
	return time.Second
}

// RetryWithBackoff は指数バックオフでリトライを実行する
func RetryWithBackoff(ctx context.Context, log logger.Logger, maxRetries int, baseDelay time.Duration, operation func() error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return err
		}

		// 最後の試行の場合はリトライしない
		if attempt == maxRetries-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, baseDelay)

		// レート制限エラーの場合はリセット時刻まで待つ
		if sleepDuration, ok := HandleRateLimitError(err); ok && sleepDuration > 0 {
			backoff = sleepDuration
			if log != nil {
				log.Warn("Rate limit hit, waiting until reset", "wait", backoff)
			}
		} else if log != nil {
			log.Debug("Retrying after backoff",
				"wait", backoff,
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"error", err,
			)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled during backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// IsRetryableError はエラーがリトライ可能かどうかを判定する
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// GitHub APIのレート制限エラー
	var rateLimitErr *gogithub.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	// GitHub APIのエラーレスポンス
	var errResp *gogithub.ErrorResponse
	if errors.As(err, &errResp) {
		if errResp.Response != nil && errResp.Response.StatusCode >= 500 {
			return true
		}
		msg := strings.ToLower(errResp.Message)
		if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
			return true
		}
	}

	// ネットワークタイムアウト・一時的なネットワークエラー
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "Client.Timeout exceeded") {
		return true
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return true
	}

	return false
}

// CalculateBackoff は指数バックオフの遅延時間を計算する
func CalculateBackoff(attempt int, baseDelay time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	// 指数バックオフ: baseDelay * 2^(attempt-1)
	delay := float64(baseDelay) * math.Pow(2, float64(attempt-1))

	// ジッターを追加（±20%）
	jitter := delay * 0.2 * (rand.Float64()*2 - 1)
	delay += jitter

	// 最大遅延時間を1分に制限
	maxDelay := float64(60 * time.Second)
	if delay > maxDelay {
		delay = maxDelay
	}

	return time.Duration(delay)
}

// HandleRateLimitError はGitHub APIのレート制限エラーを処理する
func HandleRateLimitError(err error) (time.Duration, bool) {
	var rateLimitErr *gogithub.RateLimitError
	if !errors.As(err, &rateLimitErr) {
		return 0, false
	}

	resetTime := rateLimitErr.Rate.Reset.Time
	if !resetTime.IsZero() {
		sleepDuration := time.Until(resetTime)
		if sleepDuration > 0 {
			// 少し余裕を持たせる
			return sleepDuration + time.Second, true
		}
	}

	return 0, false
}
