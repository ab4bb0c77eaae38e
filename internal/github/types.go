package github

// PRState はPRの状態
type PRState string

const (
	PRStateOpen    PRState = "OPEN"
	PRStateClosed  PRState = "CLOSED"
	PRStateMerged  PRState = "MERGED"
	PRStateUnknown PRState = "UNKNOWN"
)

// MergeableState はPRのマージ可否の三値状態
// UNKNOWNはGitHub側がまだmergeabilityを計算中の状態を表す
type MergeableState string

const (
	Mergeable        MergeableState = "MERGEABLE"
	Conflicting      MergeableState = "CONFLICTING"
	MergeableUnknown MergeableState = "UNKNOWN"
)

// ReviewDecision はPRのレビュー判定
type ReviewDecision string

const (
	ReviewApproved         ReviewDecision = "APPROVED"
	ReviewChangesRequested ReviewDecision = "CHANGES_REQUESTED"
	ReviewRequired         ReviewDecision = "REVIEW_REQUIRED"
	ReviewNone             ReviewDecision = "NONE"
)

// PRMetadata はPRのメタデータのスナップショット
type PRMetadata struct {
	Number         int
	Title          string
	State          PRState
	IsDraft        bool
	Mergeable      MergeableState
	ReviewDecision ReviewDecision
	HeadSHA        string
	HeadRef        string
}

// CheckRun は1つのCIチェックの実行結果
type CheckRun struct {
	Name       string
	Status     string // queued / in_progress / completed
	Conclusion string // success / failure / neutral / cancelled / timed_out / action_required / skipped
}

// Completed はチェックが完了しているかを返す
func (c CheckRun) Completed() bool {
	return c.Status == "completed"
}
