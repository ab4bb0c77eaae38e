package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/douhashi/omakase/internal/watcher"
)

func newStartCmd() *cobra.Command {
	var intervalFlag string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "投入とマージゲートの監視ループを開始",
		Long: `フィーチャーリストとPRの監視ループを起動します。

投入ループは投入可能なフィーチャーを定期的にワーカーへ割り当て、
マージループはワーカーのPRをゲート判定して戦略に従って昇格させます。
SIGINT / SIGTERM で停止します。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatchers(ctx, cmd, intervalFlag)
		},
	}

	cmd.Flags().StringVarP(&intervalFlag, "interval", "i", "", "ポーリング間隔（例: 30s, 1m）")

	return cmd
}

func runWatchers(ctx context.Context, cmd *cobra.Command, intervalFlag string) error {
	client, err := newGitHubClient(ctx, appConfig)
	if err != nil {
		return err
	}

	intake, err := watcher.NewIntakeWatcher(client, appConfig, appLog)
	if err != nil {
		return err
	}
	merge, err := watcher.NewMergeWatcher(client, appConfig, appLog)
	if err != nil {
		return err
	}

	if intervalFlag != "" {
		interval, err := time.ParseDuration(intervalFlag)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
		if err := intake.SetPollInterval(interval); err != nil {
			return err
		}
		if err := merge.SetPollInterval(interval); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "omakase watchers started (Ctrl+C to stop)")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		intake.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		merge.Start(ctx)
	}()

	<-ctx.Done()
	wg.Wait()

	metrics := merge.GetMetrics()
	fmt.Fprintf(cmd.OutOrStdout(), "stopped: %d merge attempts, %s success rate\n",
		metrics.TotalAttempts, metrics.GetSuccessRateFormatted())

	// 停止時点の各ループの健全性も要約に含める
	for _, health := range []watcher.HealthStatus{
		intake.CheckHealth(2 * intake.GetPollInterval()),
		merge.CheckHealth(2 * merge.GetPollInterval()),
	} {
		fmt.Fprintln(cmd.OutOrStdout(), health.Message)
	}
	return nil
}
