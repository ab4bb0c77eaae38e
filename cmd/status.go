package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/douhashi/omakase/internal/feature"
	"github.com/douhashi/omakase/internal/phase"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "フィーチャーバックログの現在の状態を表示",
		Long: `フェーズと各フィーチャーの実効ステータス・進捗を表示します。
実効ステータスは依存関係を解決した結果であり、blocking依存が未検証の
フィーチャーはblockedとして表示されます。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := feature.Load(appConfig.Features.Path)
			if err != nil {
				return err
			}

			list := store.List()

			currentPhase := phase.Phase(store.Phase())
			if currentPhase == "" {
				currentPhase = phase.Onboarding
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Phase: %s\n", currentPhase)
			if list.Project != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Project: %s\n", list.Project)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPASSES\tPROGRESS\tPR")
			for i := range list.Features {
				f := &list.Features[i]
				effective := feature.EffectiveStatus(f, list.Features)
				progress := f.GetProgress()

				pr := "-"
				if f.GitHubPR > 0 {
					pr = fmt.Sprintf("#%d", f.GitHubPR)
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d/%d steps, %d/%d criteria\t%s\n",
					f.ID, f.Name, effective, f.Passes,
					progress.StepsCompleted, progress.StepsTotal,
					progress.CriteriaVerified, progress.CriteriaTotal,
					pr,
				)
			}
			return w.Flush()
		},
	}
	return cmd
}
