package automerge

import (
	"context"
	"errors"
	"testing"

	gogithub "github.com/google/go-github/v50/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/gate"
	"github.com/douhashi/omakase/internal/github"
)

// MockClient はgithub.Clientのモック
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetPullRequestMetadata(ctx context.Context, prNumber int) (*github.PRMetadata, error) {
	args := m.Called(ctx, prNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.PRMetadata), args.Error(1)
}

func (m *MockClient) ListPullRequestChecks(ctx context.Context, prNumber int) ([]github.CheckRun, error) {
	args := m.Called(ctx, prNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.CheckRun), args.Error(1)
}

func (m *MockClient) MergePullRequest(ctx context.Context, prNumber int) error {
	args := m.Called(ctx, prNumber)
	return args.Error(0)
}

func (m *MockClient) EnableAutoMerge(ctx context.Context, prNumber int) error {
	args := m.Called(ctx, prNumber)
	return args.Error(0)
}

func (m *MockClient) AddLabelToIssue(ctx context.Context, issueNumber int, label string) error {
	args := m.Called(ctx, issueNumber, label)
	return args.Error(0)
}

func (m *MockClient) CreateIssueComment(ctx context.Context, issueNumber int, body string) error {
	args := m.Called(ctx, issueNumber, body)
	return args.Error(0)
}

func (m *MockClient) GetRateLimit(ctx context.Context) (*gogithub.RateLimits, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gogithub.RateLimits), args.Error(1)
}

func mergeableMetadata(prNumber int) *github.PRMetadata {
	return &github.PRMetadata{
		Number:         prNumber,
		State:          github.PRStateOpen,
		Mergeable:      github.Mergeable,
		ReviewDecision: github.ReviewApproved,
	}
}

func passingChecks() []github.CheckRun {
	return []github.CheckRun{
		{Name: "test", Status: "completed", Conclusion: "success"},
		{Name: "build", Status: "completed", Conclusion: "success"},
	}
}

func newEngine(client github.Client, strategy config.PRStrategy) *Engine {
	checker := gate.NewChecker(client, []string{"test", "build"}, nil)
	return NewEngine(client, checker, strategy, "omakase:review", nil)
}

func TestProcessManualStrategy(t *testing.T) {
	// manualでは外部呼び出しすら行わない
	client := new(MockClient)
	engine := newEngine(client, config.PRStrategyManual)

	result := engine.Process(context.Background(), 42, Options{})

	assert.True(t, result.Success)
	assert.Equal(t, ActionSkipped, result.Action)
	client.AssertNotCalled(t, "GetPullRequestMetadata", mock.Anything, mock.Anything)
}

func TestProcessReviewStrategy(t *testing.T) {
	t.Run("ゲート通過でラベル付与", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)
		client.On("AddLabelToIssue", mock.Anything, 42, "omakase:review").Return(nil)

		engine := newEngine(client, config.PRStrategyReview)
		result := engine.Process(context.Background(), 42, Options{})

		assert.True(t, result.Success)
		assert.Equal(t, ActionLabeled, result.Action)
		client.AssertExpectations(t)
	})

	t.Run("ゲート不合格はfailedで失敗チェック名を含む", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return([]github.CheckRun{
			{Name: "test", Status: "completed", Conclusion: "failure"},
			{Name: "build", Status: "completed", Conclusion: "success"},
		}, nil)

		engine := newEngine(client, config.PRStrategyReview)
		result := engine.Process(context.Background(), 42, Options{})

		assert.False(t, result.Success)
		assert.Equal(t, ActionFailed, result.Action)
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "test")
		client.AssertNotCalled(t, "AddLabelToIssue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ゲート待ちはpendingで何もしない", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return([]github.CheckRun{
			{Name: "test", Status: "in_progress"},
			{Name: "build", Status: "completed", Conclusion: "success"},
		}, nil)

		engine := newEngine(client, config.PRStrategyReview)
		result := engine.Process(context.Background(), 42, Options{})

		assert.True(t, result.Success)
		assert.Equal(t, ActionPending, result.Action)
		client.AssertNotCalled(t, "AddLabelToIssue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ラベル付与の失敗はResultのErrorに現れる", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)
		client.On("AddLabelToIssue", mock.Anything, 42, "omakase:review").Return(errors.New("label error"))

		engine := newEngine(client, config.PRStrategyReview)
		result := engine.Process(context.Background(), 42, Options{})

		assert.False(t, result.Success)
		assert.Equal(t, ActionFailed, result.Action)
		assert.Contains(t, result.Error.Error(), "label error")
	})
}

func TestProcessAutoStrategy(t *testing.T) {
	t.Run("マージ可能なPRはマージされる", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)
		client.On("MergePullRequest", mock.Anything, 42).Return(nil)

		engine := newEngine(client, config.PRStrategyAuto)
		result := engine.Process(context.Background(), 42, Options{})

		assert.True(t, result.Success)
		assert.Equal(t, ActionMerged, result.Action)
		client.AssertExpectations(t)
	})

	t.Run("チェック待ちはauto-mergeを有効化", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return([]github.CheckRun{
			{Name: "test", Status: "queued"},
		}, nil)
		client.On("EnableAutoMerge", mock.Anything, 42).Return(nil)

		engine := newEngine(client, config.PRStrategyAuto)
		result := engine.Process(context.Background(), 42, Options{})

		assert.True(t, result.Success)
		assert.Equal(t, ActionPending, result.Action)
		client.AssertNotCalled(t, "MergePullRequest", mock.Anything, mock.Anything)
		client.AssertExpectations(t)
	})

	t.Run("コンフリクトはfailed", func(t *testing.T) {
		meta := mergeableMetadata(42)
		meta.Mergeable = github.Conflicting

		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(meta, nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)

		engine := newEngine(client, config.PRStrategyAuto)
		result := engine.Process(context.Background(), 42, Options{})

		assert.False(t, result.Success)
		assert.Equal(t, ActionFailed, result.Action)
		assert.Contains(t, result.Error.Error(), "conflict")
		client.AssertNotCalled(t, "MergePullRequest", mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "EnableAutoMerge", mock.Anything, mock.Anything)
	})

	t.Run("changes requestedはゲート通過でもマージしない", func(t *testing.T) {
		meta := mergeableMetadata(42)
		meta.ReviewDecision = github.ReviewChangesRequested

		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(meta, nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)

		engine := newEngine(client, config.PRStrategyAuto)
		result := engine.Process(context.Background(), 42, Options{})

		assert.False(t, result.Success)
		assert.Equal(t, ActionFailed, result.Action)
		assert.Contains(t, result.Error.Error(), "changes have been requested")
	})

	t.Run("マージAPIの失敗はResultのErrorに現れる", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)
		client.On("MergePullRequest", mock.Anything, 42).Return(errors.New("merge blocked"))

		engine := newEngine(client, config.PRStrategyAuto)
		result := engine.Process(context.Background(), 42, Options{})

		assert.False(t, result.Success)
		assert.Equal(t, ActionFailed, result.Action)
		assert.Contains(t, result.Error.Error(), "merge blocked")
	})
}

func TestProcessDryRun(t *testing.T) {
	t.Run("auto戦略のdry-runは書き込みを行わない", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)

		engine := newEngine(client, config.PRStrategyAuto)
		result := engine.Process(context.Background(), 42, Options{DryRun: true})

		assert.True(t, result.Success)
		assert.Equal(t, ActionMerged, result.Action)
		assert.Contains(t, result.Message, "[dry-run]")
		client.AssertNotCalled(t, "MergePullRequest", mock.Anything, mock.Anything)
	})

	t.Run("review戦略のdry-runはラベルを付与しない", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetPullRequestMetadata", mock.Anything, 42).Return(mergeableMetadata(42), nil)
		client.On("ListPullRequestChecks", mock.Anything, 42).Return(passingChecks(), nil)

		engine := newEngine(client, config.PRStrategyReview)
		result := engine.Process(context.Background(), 42, Options{DryRun: true})

		assert.True(t, result.Success)
		assert.Equal(t, ActionLabeled, result.Action)
		assert.Contains(t, result.Message, "[dry-run]")
		client.AssertNotCalled(t, "AddLabelToIssue", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProcessMultiple(t *testing.T) {
	// 1つのPRの失敗が他のPRの処理を止めないこと
	client := new(MockClient)
	client.On("GetPullRequestMetadata", mock.Anything, 1).Return(mergeableMetadata(1), nil)
	client.On("ListPullRequestChecks", mock.Anything, 1).Return(passingChecks(), nil)
	client.On("MergePullRequest", mock.Anything, 1).Return(nil)

	client.On("GetPullRequestMetadata", mock.Anything, 2).Return(nil, errors.New("network error"))

	client.On("GetPullRequestMetadata", mock.Anything, 3).Return(mergeableMetadata(3), nil)
	client.On("ListPullRequestChecks", mock.Anything, 3).Return(passingChecks(), nil)
	client.On("MergePullRequest", mock.Anything, 3).Return(nil)

	engine := newEngine(client, config.PRStrategyAuto)
	results := engine.ProcessMultiple(context.Background(), []int{1, 2, 3}, Options{})

	require.Len(t, results, 3)
	assert.Equal(t, ActionMerged, results[1].Action)
	assert.Equal(t, ActionMerged, results[3].Action)
	// PR 2はメタデータ取得失敗 → ゲートはpending → マージ不能だがfailedに畳まれる
	assert.NotEqual(t, ActionMerged, results[2].Action)
	client.AssertExpectations(t)
}
