package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/douhashi/omakase/internal/admission"
	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/feature"
	"github.com/douhashi/omakase/internal/github"
	"github.com/douhashi/omakase/internal/logger"
)

// IntakeWatcher はフィーチャーリストを監視し、投入可能なフィーチャーを
// 定期的にワーカーへ投入する
//
// フィーチャーリストは毎サイクル読み直す。他のツールによる編集を
// 取りこぼさないためで、キャッシュは持たない。
type IntakeWatcher struct {
	client github.Client
	cfg    *config.Config
	logger logger.Logger

	mu                sync.RWMutex
	pollInterval      time.Duration
	lastExecutionTime time.Time
}

// NewIntakeWatcher は新しいIntakeWatcherを作成する
func NewIntakeWatcher(client github.Client, cfg *config.Config, log logger.Logger) (*IntakeWatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("github client is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &IntakeWatcher{
		client:       client,
		cfg:          cfg,
		logger:       log,
		pollInterval: cfg.GitHub.PollInterval,
	}, nil
}

// SetPollInterval はポーリング間隔を設定する
func (w *IntakeWatcher) SetPollInterval(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("poll interval must be at least 1 second")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
	return nil
}

// GetPollInterval はポーリング間隔を取得する
func (w *IntakeWatcher) GetPollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

// Start はフィーチャーリストの監視を開始する
func (w *IntakeWatcher) Start(ctx context.Context) {
	pollInterval := w.GetPollInterval()
	w.logger.Info("Starting intake watcher",
		"features_path", w.cfg.Features.Path,
		"max_workers", w.cfg.Autopilot.MaxConcurrentWorkers,
		"interval", pollInterval,
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// 初回実行
	w.RunOnce(ctx, admission.Options{})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping intake watcher")
			return
		case <-ticker.C:
			w.RunOnce(ctx, admission.Options{})
		}
	}
}

// RunOnce は投入パスを1回実行する
//
// フィーチャーリストを読み直し、投入可能なフィーチャーを上限まで
// 投入して結果を保存する。投入が1件もなければ書き込みは行わない。
func (w *IntakeWatcher) RunOnce(ctx context.Context, opts admission.Options) *admission.Report {
	w.mu.Lock()
	w.lastExecutionTime = time.Now()
	w.mu.Unlock()

	store, err := feature.Load(w.cfg.Features.Path)
	if err != nil {
		w.logger.Error("Failed to load feature list",
			"path", w.cfg.Features.Path,
			"error", err,
		)
		return &admission.Report{}
	}

	controller := admission.NewController(w.client, store, &w.cfg.Autopilot, w.logger)
	report := controller.LabelEligibleFeatures(ctx, opts)
	w.retryFailedDispatches(ctx, controller, report, opts)

	for _, dispatchErr := range report.Errors {
		w.logger.Error("Feature dispatch failed",
			"feature_id", dispatchErr.FeatureID,
			"error", dispatchErr.Err,
		)
	}

	if len(report.Labeled) > 0 && !opts.DryRun {
		if err := store.Save(); err != nil {
			w.logger.Error("Failed to save feature list",
				"path", w.cfg.Features.Path,
				"error", err,
			)
		}
	}

	w.logger.Info("Intake cycle completed",
		"labeled", len(report.Labeled),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)

	return report
}

// retryFailedDispatches は一時的な失敗で終わった投入をリトライする
//
// 投入操作そのものはリトライを持たない。リトライはこのケイデンス層の
// 責務で、レート制限や瞬断のような回復可能な失敗だけが対象になる。
// リトライで成功した投入はLabeledへ移し、それ以外はErrorsに残す。
func (w *IntakeWatcher) retryFailedDispatches(ctx context.Context, controller *admission.Controller, report *admission.Report, opts admission.Options) {
	if len(report.Errors) == 0 {
		return
	}

	remaining := report.Errors[:0]
	for _, dispatchErr := range report.Errors {
		if !IsRetryableError(dispatchErr.Err) {
			remaining = append(remaining, dispatchErr)
			continue
		}

		featureID := dispatchErr.FeatureID
		err := RetryWithBackoff(ctx, w.logger, cycleRetries, retryDelay(w.GetPollInterval()), func() error {
			return controller.RetryDispatch(ctx, featureID, opts)
		})
		if err != nil {
			dispatchErr.Err = err
			remaining = append(remaining, dispatchErr)
			continue
		}

		w.logger.Info("Feature dispatched after retry", "feature_id", featureID)
		report.Labeled = append(report.Labeled, featureID)
	}
	report.Errors = remaining
}

// GetLastExecutionTime は最後の実行時刻を取得する
func (w *IntakeWatcher) GetLastExecutionTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastExecutionTime
}

// GetHealthStats はヘルスチェック統計情報を取得する
func (w *IntakeWatcher) GetHealthStats() HealthStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return HealthStats{
		LastExecutionTime: w.lastExecutionTime,
		PollInterval:      w.pollInterval,
	}
}

// CheckHealth はwatcherの健全性をチェックする
func (w *IntakeWatcher) CheckHealth(maxInactivity time.Duration) HealthStatus {
	return checkHealth("Intake watcher", w.GetHealthStats(), maxInactivity)
}
