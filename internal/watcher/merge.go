package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/douhashi/omakase/internal/automerge"
	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/feature"
	"github.com/douhashi/omakase/internal/gate"
	"github.com/douhashi/omakase/internal/github"
	"github.com/douhashi/omakase/internal/logger"
)

// MergeWatcher はPRが紐付いたフィーチャーを監視し、ゲート通過したPRを
// 設定された戦略に従って昇格させる
type MergeWatcher struct {
	client  github.Client
	cfg     *config.Config
	engine  *automerge.Engine
	metrics *MergeMetrics
	logger  logger.Logger

	mu                sync.RWMutex
	pollInterval      time.Duration
	lastExecutionTime time.Time
}

// NewMergeWatcher は新しいMergeWatcherを作成する
func NewMergeWatcher(client github.Client, cfg *config.Config, log logger.Logger) (*MergeWatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("github client is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	checker := gate.NewChecker(client, cfg.Autopilot.RequiredChecks, log)
	engine := automerge.NewEngine(client, checker, cfg.Autopilot.PRStrategy, cfg.Autopilot.ReviewLabel, log)

	return &MergeWatcher{
		client:       client,
		cfg:          cfg,
		engine:       engine,
		metrics:      NewMergeMetrics(),
		logger:       log,
		pollInterval: cfg.GitHub.PollInterval,
	}, nil
}

// SetPollInterval はポーリング間隔を設定する
func (w *MergeWatcher) SetPollInterval(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("poll interval must be at least 1 second")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
	return nil
}

// GetPollInterval はポーリング間隔を取得する
func (w *MergeWatcher) GetPollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

// Start はPR監視を開始する
func (w *MergeWatcher) Start(ctx context.Context) {
	pollInterval := w.GetPollInterval()
	w.logger.Info("Starting merge watcher",
		"strategy", w.cfg.Autopilot.PRStrategy,
		"required_checks", w.cfg.Autopilot.RequiredChecks,
		"interval", pollInterval,
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// 初回実行
	w.RunOnce(ctx, automerge.Options{})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping merge watcher")
			return
		case <-ticker.C:
			w.RunOnce(ctx, automerge.Options{})
		}
	}
}

// RunOnce はゲート・昇格パスを1回実行する
//
// PRが紐付いた着手済みフィーチャーを集め、PRを順に処理する。
// マージされたPRのフィーチャーは検証済みへ進めて保存する。
func (w *MergeWatcher) RunOnce(ctx context.Context, opts automerge.Options) map[int]*automerge.Result {
	w.mu.Lock()
	w.lastExecutionTime = time.Now()
	w.mu.Unlock()

	store, err := feature.Load(w.cfg.Features.Path)
	if err != nil {
		w.logger.Error("Failed to load feature list",
			"path", w.cfg.Features.Path,
			"error", err,
		)
		return nil
	}

	prToFeature := collectOpenPRs(store.List())
	if len(prToFeature) == 0 {
		w.logger.Debug("No pull requests to process")
		return nil
	}

	prNumbers := make([]int, 0, len(prToFeature))
	for prNumber := range prToFeature {
		prNumbers = append(prNumbers, prNumber)
	}
	sort.Ints(prNumbers)

	return w.process(ctx, store, prNumbers, prToFeature, opts)
}

// ProcessPRs は指定されたPRだけを対象にゲート・昇格パスを実行する
//
// フィーチャーリスト上でPRに対応するフィーチャーが見つかれば、マージ時に
// 昇格も行う。対応がないPRはゲート判定とマージ処理のみ行う。
func (w *MergeWatcher) ProcessPRs(ctx context.Context, prNumbers []int, opts automerge.Options) map[int]*automerge.Result {
	w.mu.Lock()
	w.lastExecutionTime = time.Now()
	w.mu.Unlock()

	prToFeature := make(map[int]string)
	store, err := feature.Load(w.cfg.Features.Path)
	if err != nil {
		w.logger.Warn("Failed to load feature list, PRs will be processed without promotion",
			"path", w.cfg.Features.Path,
			"error", err,
		)
		store = nil
	} else {
		for prNumber, featureID := range collectOpenPRs(store.List()) {
			prToFeature[prNumber] = featureID
		}
	}

	return w.process(ctx, store, prNumbers, prToFeature, opts)
}

// process はPR群を順に処理し、マージされたPRのフィーチャーを昇格させる
func (w *MergeWatcher) process(ctx context.Context, store *feature.Store, prNumbers []int, prToFeature map[int]string, opts automerge.Options) map[int]*automerge.Result {
	results := w.engine.ProcessMultiple(ctx, prNumbers, opts)
	w.retryTransientFailures(ctx, results, prNumbers, opts)

	promoted := 0
	for _, prNumber := range prNumbers {
		result := results[prNumber]
		featureID := prToFeature[prNumber]

		switch result.Action {
		case automerge.ActionMerged:
			w.metrics.RecordSuccess(prNumber)
			if opts.DryRun || store == nil || featureID == "" {
				continue
			}
			if err := store.MarkPromoted(featureID); err != nil {
				w.logger.Error("Failed to promote feature",
					"feature_id", featureID,
					"pr_number", prNumber,
					"error", err,
				)
				continue
			}
			promoted++
			w.logger.Info("Feature promoted",
				"feature_id", featureID,
				"pr_number", prNumber,
			)
		case automerge.ActionFailed:
			reason := "unknown"
			if result.Error != nil {
				reason = result.Error.Error()
			}
			w.metrics.RecordFailure(prNumber, reason)
			w.logger.Warn("PR is not promotable",
				"feature_id", featureID,
				"pr_number", prNumber,
				"reason", reason,
			)
		default:
			w.logger.Debug("PR processed",
				"feature_id", featureID,
				"pr_number", prNumber,
				"action", result.Action,
				"message", result.Message,
			)
		}
	}

	if promoted > 0 {
		if err := store.Save(); err != nil {
			w.logger.Error("Failed to save feature list",
				"path", w.cfg.Features.Path,
				"error", err,
			)
		}
	}

	return results
}

// retryTransientFailures は一時的なAPI障害で失敗したPRの処理をやり直す
//
// ゲート判定とマージ操作そのものはリトライを持たない。レート制限や
// 瞬断による失敗だけを対象に、このケイデンス層でPR単位にやり直す。
// 結果は最後の試行のもので上書きされる。
func (w *MergeWatcher) retryTransientFailures(ctx context.Context, results map[int]*automerge.Result, prNumbers []int, opts automerge.Options) {
	for _, prNumber := range prNumbers {
		result := results[prNumber]
		if result.Error == nil || !IsRetryableError(result.Error) {
			continue
		}

		err := RetryWithBackoff(ctx, w.logger, cycleRetries, retryDelay(w.GetPollInterval()), func() error {
			retried := w.engine.Process(ctx, prNumber, opts)
			results[prNumber] = retried
			if retried.Error != nil && IsRetryableError(retried.Error) {
				return retried.Error
			}
			return nil
		})
		if err != nil {
			w.logger.Warn("Giving up on PR after retries",
				"pr_number", prNumber,
				"error", err,
			)
		}
	}
}

// collectOpenPRs は昇格処理の対象となるPR番号とフィーチャーIDの対応を集める
//
// 対象はPRが紐付いた着手済みかつ未検証のフィーチャー。同じPRに複数の
// フィーチャーが紐付くことは想定しない（後勝ち）。
func collectOpenPRs(list *feature.FeatureList) map[int]string {
	prs := make(map[int]string)
	for i := range list.Features {
		f := &list.Features[i]
		if f.GitHubPR <= 0 {
			continue
		}
		if !f.Status.Started() || f.Status == feature.StatusVerified {
			continue
		}
		prs[f.GitHubPR] = f.ID
	}
	return prs
}

// GetMetrics はマージメトリクスのスナップショットを取得する
func (w *MergeWatcher) GetMetrics() MergeMetricsSnapshot {
	return w.metrics.GetSnapshot()
}

// GetLastExecutionTime は最後の実行時刻を取得する
func (w *MergeWatcher) GetLastExecutionTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastExecutionTime
}

// GetHealthStats はヘルスチェック統計情報を取得する
func (w *MergeWatcher) GetHealthStats() HealthStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return HealthStats{
		LastExecutionTime: w.lastExecutionTime,
		PollInterval:      w.pollInterval,
	}
}

// CheckHealth はwatcherの健全性をチェックする
func (w *MergeWatcher) CheckHealth(maxInactivity time.Duration) HealthStatus {
	return checkHealth("Merge watcher", w.GetHealthStats(), maxInactivity)
}
