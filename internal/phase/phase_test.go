package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		current  Phase
		target   Phase
		expected bool
	}{
		{name: "onboardingからsetupへ", current: Onboarding, target: Setup, expected: true},
		{name: "setupからplanningへ", current: Setup, target: Planning, expected: true},
		{name: "planningからdevelopmentへ", current: Planning, target: Development, expected: true},
		{name: "developmentからverificationへ", current: Development, target: Verification, expected: true},
		{name: "developmentの自己遷移", current: Development, target: Development, expected: true},
		{name: "verificationからdevelopmentへの差し戻し", current: Verification, target: Development, expected: true},
		{name: "verificationからproductionへ", current: Verification, target: Production, expected: true},
		{name: "productionからshippedへ", current: Production, target: Shipped, expected: true},
		{name: "shippedからdevelopmentへの再突入", current: Shipped, target: Development, expected: true},
		{name: "shippedからonboardingへは戻れない", current: Shipped, target: Onboarding, expected: false},
		{name: "planningからverificationへの飛び越しは不可", current: Planning, target: Verification, expected: false},
		{name: "onboardingからdevelopmentへの飛び越しは不可", current: Onboarding, target: Development, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransitionTo(tt.current, tt.target))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	t.Run("許可された遷移はエラーにならない", func(t *testing.T) {
		assert.NoError(t, ValidateTransition(Development, Verification))
	})

	t.Run("不正な遷移は拒否される", func(t *testing.T) {
		err := ValidateTransition(Shipped, Onboarding)
		assert.ErrorContains(t, err, "not allowed")
	})

	t.Run("未知のフェーズは拒否される", func(t *testing.T) {
		err := ValidateTransition(Phase("testing"), Development)
		assert.ErrorContains(t, err, "unknown phase")
	})
}

func TestRecommendedNext(t *testing.T) {
	tests := []struct {
		name     string
		current  Phase
		cond     Conditions
		expected Phase
		ok       bool
	}{
		{
			name:     "onboardingは無条件でsetupを推奨",
			current:  Onboarding,
			expected: Setup,
			ok:       true,
		},
		{
			name:     "planningはフィーチャーリストがなければ推奨なし",
			current:  Planning,
			cond:     Conditions{HasFeatureList: false},
			expected: "",
			ok:       false,
		},
		{
			name:     "planningはフィーチャーリストがあればdevelopmentを推奨",
			current:  Planning,
			cond:     Conditions{HasFeatureList: true},
			expected: Development,
			ok:       true,
		},
		{
			name:     "developmentは全検証完了でverificationを推奨",
			current:  Development,
			cond:     Conditions{AllFeaturesVerified: true},
			expected: Verification,
			ok:       true,
		},
		{
			name:     "developmentは未検証が残っていれば推奨なし",
			current:  Development,
			cond:     Conditions{AllFeaturesVerified: false},
			expected: "",
			ok:       false,
		},
		{
			name:     "verificationは本番チェック通過でproductionを推奨",
			current:  Verification,
			cond:     Conditions{AllFeaturesVerified: true, ProductionChecksPass: true},
			expected: Production,
			ok:       true,
		},
		{
			name:     "verificationで未検証が見つかればdevelopmentへ差し戻し",
			current:  Verification,
			cond:     Conditions{AllFeaturesVerified: false},
			expected: Development,
			ok:       true,
		},
		{
			name:     "productionは両条件成立でshippedを推奨",
			current:  Production,
			cond:     Conditions{AllFeaturesVerified: true, ProductionChecksPass: true},
			expected: Shipped,
			ok:       true,
		},
		{
			name:     "shippedは新しい未検証フィーチャーでdevelopmentを推奨",
			current:  Shipped,
			cond:     Conditions{HasFeatureList: true, AllFeaturesVerified: false},
			expected: Development,
			ok:       true,
		},
		{
			name:     "shippedは全検証済みなら推奨なし",
			current:  Shipped,
			cond:     Conditions{HasFeatureList: true, AllFeaturesVerified: true},
			expected: "",
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecommendedNext(tt.current, tt.cond)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
