package watcher

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MergeMetrics は昇格（マージ）処理のメトリクスを管理する構造体
type MergeMetrics struct {
	mu               sync.RWMutex
	totalAttempts    int64
	successfulMerges int64
	failedMerges     int64
	failureReasons   map[string]int64
	startTime        time.Time
	lastAttemptTime  time.Time
}

// FailureReason は失敗理由とその発生回数を表す構造体
type FailureReason struct {
	Reason string
	Count  int64
}

// NewMergeMetrics は新しいMergeMetricsを作成する
func NewMergeMetrics() *MergeMetrics {
	return &MergeMetrics{
		failureReasons: make(map[string]int64),
		startTime:      time.Now(),
	}
}

// RecordSuccess は成功したマージを記録する
func (m *MergeMetrics) RecordSuccess(prNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalAttempts++
	m.successfulMerges++
	m.lastAttemptTime = time.Now()
}

// RecordFailure は失敗したマージを記録する
func (m *MergeMetrics) RecordFailure(prNumber int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalAttempts++
	m.failedMerges++
	m.failureReasons[reason]++
	m.lastAttemptTime = time.Now()
}

// GetSnapshot はメトリクスの読み取り専用スナップショットを返す
func (m *MergeMetrics) GetSnapshot() MergeMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failureReasons := make(map[string]int64, len(m.failureReasons))
	for k, v := range m.failureReasons {
		failureReasons[k] = v
	}

	var successRate float64
	if m.totalAttempts > 0 {
		successRate = float64(m.successfulMerges) / float64(m.totalAttempts) * 100.0
	}

	return MergeMetricsSnapshot{
		TotalAttempts:    m.totalAttempts,
		SuccessfulMerges: m.successfulMerges,
		FailedMerges:     m.failedMerges,
		FailureReasons:   failureReasons,
		StartTime:        m.startTime,
		LastAttemptTime:  m.lastAttemptTime,
		SuccessRate:      successRate,
		UptimeDuration:   time.Since(m.startTime),
	}
}

// Reset はメトリクスをリセットする
func (m *MergeMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalAttempts = 0
	m.successfulMerges = 0
	m.failedMerges = 0
	m.failureReasons = make(map[string]int64)
	m.startTime = time.Now()
	m.lastAttemptTime = time.Time{}
}

// MergeMetricsSnapshot はメトリクスの読み取り専用スナップショット
type MergeMetricsSnapshot struct {
	TotalAttempts    int64
	SuccessfulMerges int64
	FailedMerges     int64
	FailureReasons   map[string]int64
	StartTime        time.Time
	LastAttemptTime  time.Time
	SuccessRate      float64
	UptimeDuration   time.Duration
}

// GetSuccessRateFormatted はフォーマットされた成功率文字列を返す
func (s MergeMetricsSnapshot) GetSuccessRateFormatted() string {
	return fmt.Sprintf("%.2f%%", s.SuccessRate)
}

// GetTopFailureReasons は上位N個の失敗理由を取得する
func (s MergeMetricsSnapshot) GetTopFailureReasons(limit int) []FailureReason {
	if len(s.FailureReasons) == 0 {
		return []FailureReason{}
	}

	reasons := make([]FailureReason, 0, len(s.FailureReasons))
	for reason, count := range s.FailureReasons {
		reasons = append(reasons, FailureReason{Reason: reason, Count: count})
	}

	// 発生回数でソート（降順）
	sort.Slice(reasons, func(i, j int) bool {
		return reasons[i].Count > reasons[j].Count
	})

	if limit < len(reasons) {
		return reasons[:limit]
	}
	return reasons
}
