package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douhashi/omakase/internal/admission"
	"github.com/douhashi/omakase/internal/watcher"
)

func newDispatchCmd() *cobra.Command {
	var (
		dryRun bool
		maxN   int
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "投入可能なフィーチャーをワーカーに投入",
		Long: `フィーチャーリストを読み込み、投入可能なフィーチャーを同時稼働数の
上限までワーカーに投入します。投入はリスト順で決定的に行われます。

--dry-runを指定すると、判定結果だけを表示して外部への書き込みは行いません。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newGitHubClient(ctx, appConfig)
			if err != nil {
				return err
			}

			w, err := watcher.NewIntakeWatcher(client, appConfig, appLog)
			if err != nil {
				return err
			}

			report := w.RunOnce(ctx, admission.Options{MaxToLabel: maxN, DryRun: dryRun})

			out := cmd.OutOrStdout()
			for _, id := range report.Labeled {
				if dryRun {
					fmt.Fprintf(out, "[dry-run] would dispatch: %s\n", id)
				} else {
					fmt.Fprintf(out, "dispatched: %s\n", id)
				}
			}
			for _, skip := range report.Skipped {
				fmt.Fprintf(out, "skipped: %s (%s)\n", skip.FeatureID, skip.Reason)
			}
			for _, dispatchErr := range report.Errors {
				fmt.Fprintf(out, "error: %s (%v)\n", dispatchErr.FeatureID, dispatchErr.Err)
			}

			fmt.Fprintf(out, "\n%d dispatched, %d skipped, %d errors\n",
				len(report.Labeled), len(report.Skipped), len(report.Errors))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "外部への書き込みを行わずに判定のみ表示")
	cmd.Flags().IntVarP(&maxN, "max", "m", 0, "今回の投入数の上限（0は設定値に従う）")

	return cmd
}
