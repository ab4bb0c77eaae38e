package watcher

import (
	"fmt"
	"time"
)

// HealthStats はwatcherのヘルスチェック統計情報
type HealthStats struct {
	LastExecutionTime time.Time
	PollInterval      time.Duration
}

// HealthStatus はwatcherの健全性の判定結果
type HealthStatus struct {
	IsHealthy bool
	Message   string
}

// checkHealth は最終実行時刻からwatcherの健全性を判定する
func checkHealth(name string, stats HealthStats, maxInactivity time.Duration) HealthStatus {
	if stats.LastExecutionTime.IsZero() {
		return HealthStatus{
			IsHealthy: false,
			Message:   fmt.Sprintf("%s has not executed yet", name),
		}
	}

	inactivity := time.Since(stats.LastExecutionTime)
	if inactivity > maxInactivity {
		return HealthStatus{
			IsHealthy: false,
			Message:   fmt.Sprintf("%s has been inactive for %v (max: %v)", name, inactivity, maxInactivity),
		}
	}

	return HealthStatus{
		IsHealthy: true,
		Message:   fmt.Sprintf("%s is healthy (last execution: %v ago)", name, inactivity),
	}
}
