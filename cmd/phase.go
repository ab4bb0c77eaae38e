package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douhashi/omakase/internal/feature"
	"github.com/douhashi/omakase/internal/phase"
)

func newPhaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase [next]",
		Short: "開発フェーズの表示と進行",
		Long: `現在の開発フェーズを表示します。

"omakase phase next" は前提条件を評価して推奨される次フェーズへ遷移します。
前提条件が満たされていない場合（例: planningからの進行にはフィーチャー
リストが必要）は遷移せずにその旨を表示します。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := feature.Load(appConfig.Features.Path)
			if err != nil {
				return err
			}

			current := phase.Phase(store.Phase())
			if current == "" {
				current = phase.Onboarding
			}
			if !current.Valid() {
				return fmt.Errorf("feature list records an unknown phase: %s", current)
			}

			out := cmd.OutOrStdout()

			if len(args) == 0 {
				fmt.Fprintf(out, "current phase: %s\n", current)
				if next, ok := phase.RecommendedNext(current, evaluateConditions(store.List())); ok {
					fmt.Fprintf(out, "recommended next: %s\n", next)
				} else {
					fmt.Fprintln(out, "recommended next: none (preconditions unmet)")
				}
				return nil
			}

			if args[0] != "next" {
				return fmt.Errorf("unknown argument: %s (expected \"next\")", args[0])
			}

			next, ok := phase.RecommendedNext(current, evaluateConditions(store.List()))
			if !ok {
				fmt.Fprintf(out, "phase remains %s: preconditions for progression are unmet\n", current)
				return nil
			}

			if err := phase.ValidateTransition(current, next); err != nil {
				return err
			}

			if err := store.SetPhase(string(next)); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}

			fmt.Fprintf(out, "phase: %s -> %s\n", current, next)
			return nil
		},
	}
	return cmd
}

// evaluateConditions はフィーチャーリストからフェーズ進行の前提条件を評価する
//
// ProductionChecksPass はフィーチャーの検証状態から導出する。外部の本番
// チェックはこのツールの管理外のため、全フィーチャー検証済みを代理指標とする。
func evaluateConditions(list *feature.FeatureList) phase.Conditions {
	allVerified := len(list.Features) > 0
	for i := range list.Features {
		if list.Features[i].Status != feature.StatusVerified || !list.Features[i].Passes {
			allVerified = false
			break
		}
	}

	return phase.Conditions{
		HasFeatureList:       len(list.Features) > 0,
		AllFeaturesVerified:  allVerified,
		ProductionChecksPass: allVerified,
	}
}
