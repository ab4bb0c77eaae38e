package gate

import (
	"context"
	"errors"
	"testing"

	gogithub "github.com/google/go-github/v50/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/douhashi/omakase/internal/github"
)

// MockClientForGate はgithub.Clientのモック（ゲートテスト用）
type MockClientForGate struct {
	mock.Mock
}

func (m *MockClientForGate) GetPullRequestMetadata(ctx context.Context, prNumber int) (*github.PRMetadata, error) {
	args := m.Called(ctx, prNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.PRMetadata), args.Error(1)
}

func (m *MockClientForGate) ListPullRequestChecks(ctx context.Context, prNumber int) ([]github.CheckRun, error) {
	args := m.Called(ctx, prNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.CheckRun), args.Error(1)
}

func (m *MockClientForGate) MergePullRequest(ctx context.Context, prNumber int) error {
	args := m.Called(ctx, prNumber)
	return args.Error(0)
}

func (m *MockClientForGate) EnableAutoMerge(ctx context.Context, prNumber int) error {
	args := m.Called(ctx, prNumber)
	return args.Error(0)
}

func (m *MockClientForGate) AddLabelToIssue(ctx context.Context, issueNumber int, label string) error {
	args := m.Called(ctx, issueNumber, label)
	return args.Error(0)
}

func (m *MockClientForGate) CreateIssueComment(ctx context.Context, issueNumber int, body string) error {
	args := m.Called(ctx, issueNumber, body)
	return args.Error(0)
}

func (m *MockClientForGate) GetRateLimit(ctx context.Context) (*gogithub.RateLimits, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gogithub.RateLimits), args.Error(1)
}

func openMetadata() *github.PRMetadata {
	return &github.PRMetadata{
		Number:         42,
		State:          github.PRStateOpen,
		Mergeable:      github.Mergeable,
		ReviewDecision: github.ReviewNone,
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name           string
		required       []string
		meta           *github.PRMetadata
		checks         []github.CheckRun
		expectedResult Result
		expectedFailed []string
		expectedPassed []string
	}{
		{
			name:     "全必須チェック成功でpass",
			required: []string{"test", "build"},
			meta:     openMetadata(),
			checks: []github.CheckRun{
				{Name: "test", Status: "completed", Conclusion: "success"},
				{Name: "build", Status: "completed", Conclusion: "success"},
			},
			expectedResult: ResultPass,
			expectedPassed: []string{"test", "build"},
		},
		{
			name:     "1つでも失敗すればfail",
			required: []string{"test", "build"},
			meta:     openMetadata(),
			checks: []github.CheckRun{
				{Name: "test", Status: "completed", Conclusion: "failure"},
				{Name: "build", Status: "completed", Conclusion: "success"},
			},
			expectedResult: ResultFail,
			expectedFailed: []string{"test"},
			expectedPassed: []string{"build"},
		},
		{
			name:     "実行中のチェックがあればpending",
			required: []string{"test"},
			meta:     openMetadata(),
			checks: []github.CheckRun{
				{Name: "test", Status: "in_progress"},
			},
			expectedResult: ResultPending,
		},
		{
			name:           "観測されない必須チェックはpending（failではない）",
			required:       []string{"test", "deploy"},
			meta:           openMetadata(),
			checks:         []github.CheckRun{{Name: "test", Status: "completed", Conclusion: "success"}},
			expectedResult: ResultPending,
			expectedPassed: []string{"test"},
		},
		{
			name:           "必須チェックが空ならチェックなしでもpass",
			required:       nil,
			meta:           openMetadata(),
			checks:         []github.CheckRun{},
			expectedResult: ResultPass,
		},
		{
			name:     "マトリクス名はサフィックス付きでも照合される",
			required: []string{"test"},
			meta:     openMetadata(),
			checks: []github.CheckRun{
				{Name: "CI / test (18.x)", Status: "completed", Conclusion: "success"},
				{Name: "CI / test (20.x)", Status: "completed", Conclusion: "success"},
			},
			expectedResult: ResultPass,
			expectedPassed: []string{"test"},
		},
		{
			name:     "マトリクスの一部が失敗すればfail",
			required: []string{"test"},
			meta:     openMetadata(),
			checks: []github.CheckRun{
				{Name: "CI / test (18.x)", Status: "completed", Conclusion: "success"},
				{Name: "CI / test (20.x)", Status: "completed", Conclusion: "timed_out"},
			},
			expectedResult: ResultFail,
			expectedFailed: []string{"test"},
		},
		{
			name:     "neutralとskippedは合格扱い",
			required: []string{"lint", "docs"},
			meta:     openMetadata(),
			checks: []github.CheckRun{
				{Name: "lint", Status: "completed", Conclusion: "neutral"},
				{Name: "docs", Status: "completed", Conclusion: "skipped"},
			},
			expectedResult: ResultPass,
			expectedPassed: []string{"lint", "docs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockClientForGate)
			client.On("GetPullRequestMetadata", mock.Anything, 42).Return(tt.meta, nil)
			client.On("ListPullRequestChecks", mock.Anything, 42).Return(tt.checks, nil)

			checker := NewChecker(client, tt.required, nil)
			status := checker.CheckStatus(context.Background(), 42)

			assert.Equal(t, tt.expectedResult, status.Result)
			assert.Equal(t, tt.expectedFailed, status.FailedChecks)
			assert.Equal(t, tt.expectedPassed, status.PassedChecks)
		})
	}
}

func TestCheckStatusDraft(t *testing.T) {
	// 全チェック成功でもドラフトはpending
	meta := openMetadata()
	meta.IsDraft = true

	client := new(MockClientForGate)
	client.On("GetPullRequestMetadata", mock.Anything, 42).Return(meta, nil)
	client.On("ListPullRequestChecks", mock.Anything, 42).Return([]github.CheckRun{
		{Name: "test", Status: "completed", Conclusion: "success"},
		{Name: "build", Status: "completed", Conclusion: "success"},
	}, nil)

	checker := NewChecker(client, []string{"test", "build"}, nil)
	status := checker.CheckStatus(context.Background(), 42)

	assert.Equal(t, ResultPending, status.Result)
	assert.True(t, status.Draft)
	assert.Contains(t, status.Summary, "draft")
	// 仕分け結果自体は報告用に残る
	assert.Equal(t, []string{"test", "build"}, status.PassedChecks)
}

func TestCheckStatusMetadataFailure(t *testing.T) {
	client := new(MockClientForGate)
	client.On("GetPullRequestMetadata", mock.Anything, 42).Return(nil, errors.New("network error"))

	checker := NewChecker(client, []string{"test"}, nil)
	status := checker.CheckStatus(context.Background(), 42)

	// 外部呼び出しの失敗は例外ではなくUNKNOWN/pendingとして返る
	assert.Equal(t, ResultPending, status.Result)
	assert.Equal(t, github.PRStateUnknown, status.State)
	assert.Empty(t, status.Checks)
	assert.Contains(t, status.Summary, "network error")
}

func TestCheckStatusChecksFailure(t *testing.T) {
	client := new(MockClientForGate)
	client.On("GetPullRequestMetadata", mock.Anything, 42).Return(openMetadata(), nil)
	client.On("ListPullRequestChecks", mock.Anything, 42).Return(nil, errors.New("api unavailable"))

	checker := NewChecker(client, []string{"test"}, nil)
	status := checker.CheckStatus(context.Background(), 42)

	assert.Equal(t, ResultPending, status.Result)
	assert.Equal(t, github.PRStateOpen, status.State)
	assert.Contains(t, status.Summary, "api unavailable")
}

func TestCheckStatusIsIdempotent(t *testing.T) {
	client := new(MockClientForGate)
	client.On("GetPullRequestMetadata", mock.Anything, 42).Return(openMetadata(), nil)
	client.On("ListPullRequestChecks", mock.Anything, 42).Return([]github.CheckRun{
		{Name: "test", Status: "completed", Conclusion: "success"},
	}, nil)

	checker := NewChecker(client, []string{"test"}, nil)
	first := checker.CheckStatus(context.Background(), 42)
	second := checker.CheckStatus(context.Background(), 42)

	require.Equal(t, first, second)
}

func TestMatchesRequiredCheck(t *testing.T) {
	tests := []struct {
		required string
		observed string
		expected bool
	}{
		{required: "test", observed: "test", expected: true},
		{required: "test", observed: "CI / test (18.x)", expected: true},
		{required: "Test", observed: "ci / TEST", expected: true},
		// 逆方向の包含も照合する
		{required: "CI / build (linux)", observed: "build", expected: true},
		{required: "test", observed: "build", expected: false},
		{required: "", observed: "test", expected: false},
		{required: "test", observed: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.required+"/"+tt.observed, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchesRequiredCheck(tt.required, tt.observed))
		})
	}
}
