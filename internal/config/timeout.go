package config

import (
	"regexp"
	"strconv"
	"time"
)

// worker_timeoutが受け付ける形式は <N>m と <N>h のみ
var workerTimeoutPattern = regexp.MustCompile(`^(\d+)([mh])$`)

// ParseWorkerTimeout はworker_timeout文字列をパースする
// 不正な入力はエラーにせず30分のデフォルトにフォールバックする
func ParseWorkerTimeout(s string) time.Duration {
	matches := workerTimeoutPattern.FindStringSubmatch(s)
	if matches == nil {
		return DefaultWorkerTimeout
	}

	n, err := strconv.Atoi(matches[1])
	if err != nil || n <= 0 {
		return DefaultWorkerTimeout
	}

	switch matches[2] {
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	}

	return DefaultWorkerTimeout
}
