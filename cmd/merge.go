package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/douhashi/omakase/internal/automerge"
	"github.com/douhashi/omakase/internal/gate"
	"github.com/douhashi/omakase/internal/watcher"
)

func newMergeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "merge [pr...]",
		Short: "ゲート通過したPRを戦略に従って昇格",
		Long: `PR番号を指定した場合はそのPRだけを、指定しない場合はPRが紐付いた
着手済みフィーチャーすべてを対象に、CIゲートの判定と設定された戦略
（auto / review / manual）に従った昇格処理を1回実行します。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newGitHubClient(ctx, appConfig)
			if err != nil {
				return err
			}

			w, err := watcher.NewMergeWatcher(client, appConfig, appLog)
			if err != nil {
				return err
			}

			opts := automerge.Options{DryRun: dryRun}

			var results map[int]*automerge.Result
			if len(args) > 0 {
				prNumbers := make([]int, 0, len(args))
				for _, arg := range args {
					prNumber, err := strconv.Atoi(arg)
					if err != nil || prNumber <= 0 {
						return fmt.Errorf("invalid PR number: %s", arg)
					}
					prNumbers = append(prNumbers, prNumber)
				}
				results = w.ProcessPRs(ctx, prNumbers, opts)
			} else {
				results = w.RunOnce(ctx, opts)
			}

			printMergeResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "外部への書き込みを行わずに判定のみ表示")

	return cmd
}

func printMergeResults(cmd *cobra.Command, results map[int]*automerge.Result) {
	out := cmd.OutOrStdout()

	prNumbers := make([]int, 0, len(results))
	for prNumber := range results {
		prNumbers = append(prNumbers, prNumber)
	}
	sort.Ints(prNumbers)

	for _, prNumber := range prNumbers {
		result := results[prNumber]
		switch {
		case result.Error != nil:
			fmt.Fprintf(out, "PR #%d: %s (%v)\n", prNumber, result.Action, result.Error)
		case result.Message != "":
			fmt.Fprintf(out, "PR #%d: %s (%s)\n", prNumber, result.Action, result.Message)
		default:
			fmt.Fprintf(out, "PR #%d: %s\n", prNumber, result.Action)
		}
		if result.Status != nil && result.Status.Result == gate.ResultFail {
			fmt.Fprintf(out, "  failed checks: %v\n", result.Status.FailedChecks)
		}
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "no pull requests to process")
	}
}
