package phase

import "fmt"

// Phase はプロジェクト全体の開発フェーズを表す型
type Phase string

const (
	Onboarding   Phase = "onboarding"
	Setup        Phase = "setup"
	Planning     Phase = "planning"
	Development  Phase = "development"
	Verification Phase = "verification"
	Production   Phase = "production"
	Shipped      Phase = "shipped"
)

// transitions は許可されたフェーズ遷移のテーブル
// shippedは終端だが再突入可能で、新しいサイクルはdevelopmentに戻る
// （onboardingからやり直すことはない）
var transitions = map[Phase][]Phase{
	Onboarding:   {Setup},
	Setup:        {Planning},
	Planning:     {Development},
	Development:  {Verification, Development},
	Verification: {Development, Production},
	Production:   {Development, Shipped},
	Shipped:      {Development},
}

// Valid はフェーズが定義済みの値かどうかを返す
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// CanTransitionTo は現在のフェーズからtargetへの遷移が許可されているかを返す
func CanTransitionTo(current, target Phase) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidateTransition は遷移の妥当性を検証し、不正な遷移を拒否する
// 黙って現在のフェーズに丸めることはしない
func ValidateTransition(current, target Phase) error {
	if !current.Valid() {
		return fmt.Errorf("unknown phase: %s", current)
	}
	if !target.Valid() {
		return fmt.Errorf("unknown phase: %s", target)
	}
	if !CanTransitionTo(current, target) {
		return fmt.Errorf("transition from %s to %s is not allowed", current, target)
	}
	return nil
}

// Conditions はフェーズ進行の前提条件
type Conditions struct {
	HasFeatureList       bool
	AllFeaturesVerified  bool
	ProductionChecksPass bool
}

// RecommendedNext は現在のフェーズからの推奨される次フェーズを返す
//
// 前提条件が満たされていない場合はfalseを返し、呼び出し側に遷移ではなく
// 情報収集が必要であることを知らせる。
func RecommendedNext(current Phase, cond Conditions) (Phase, bool) {
	switch current {
	case Onboarding:
		return Setup, true
	case Setup:
		return Planning, true
	case Planning:
		if cond.HasFeatureList {
			return Development, true
		}
	case Development:
		if cond.AllFeaturesVerified {
			return Verification, true
		}
	case Verification:
		if cond.ProductionChecksPass {
			return Production, true
		}
		if !cond.AllFeaturesVerified {
			// 検証で問題が見つかった場合は開発に差し戻す
			return Development, true
		}
	case Production:
		if cond.AllFeaturesVerified && cond.ProductionChecksPass {
			return Shipped, true
		}
	case Shipped:
		// 新しいサイクル: 未検証のフィーチャーが積まれたらdevelopmentへ
		if cond.HasFeatureList && !cond.AllFeaturesVerified {
			return Development, true
		}
	}
	return "", false
}
