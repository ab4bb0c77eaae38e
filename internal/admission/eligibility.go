package admission

import (
	"fmt"
	"strings"

	"github.com/douhashi/omakase/internal/feature"
)

// Eligibility は1フィーチャーの投入可否の判定結果
type Eligibility struct {
	Eligible bool
	Reason   string
}

// CheckEligibility はフィーチャーが自律ワーカーに投入可能かを判定する
//
// 判定は以下の順で行い、最初に失敗した条件だけをReasonとして返す。
// 条件を集約しないのは、スキップ理由を常に具体的で行動可能なものに
// 保つため。
//  1. トラッキングIssueが紐付いていること
//  2. blockingフィーチャーでないこと（人間の判断が必要なため並列自動化の対象外）
//  3. 実効ステータスがblockedでないこと
//  4. 実効ステータスがplannedまたはreadyであること（着手済みは再投入しない）
func CheckEligibility(f *feature.Feature, all []feature.Feature) Eligibility {
	if !f.HasTrackingIssue() {
		return Eligibility{Reason: "no tracking issue linked"}
	}

	if f.Blocking {
		return Eligibility{Reason: "blocking feature requires orchestrator attention"}
	}

	effective := feature.EffectiveStatus(f, all)
	if effective == feature.StatusBlocked {
		deps := feature.BlockingDependencies(f, all)
		return Eligibility{Reason: fmt.Sprintf("blocked by dependencies: %s", strings.Join(deps, ", "))}
	}

	if effective != feature.StatusPlanned && effective != feature.StatusReady {
		return Eligibility{Reason: fmt.Sprintf("status is %s", effective)}
	}

	return Eligibility{Eligible: true}
}
