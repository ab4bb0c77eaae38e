package feature

// Status はフィーチャーの記録上のステータスを表す型
type Status string

const (
	StatusPlanned     Status = "planned"
	StatusReady       Status = "ready"
	StatusInProgress  Status = "in_progress"
	StatusImplemented Status = "implemented"
	StatusVerified    Status = "verified"

	// StatusBlocked は依存関係の解決結果としてのみ現れる実効ステータス
	// フィーチャー自身のstatusフィールドには記録されない
	StatusBlocked Status = "blocked"
)

// Started はフィーチャーが着手済みのステータスかどうかを判定する
// 着手済みのフィーチャーは依存関係によってブロックされない
func (s Status) Started() bool {
	switch s {
	case StatusInProgress, StatusImplemented, StatusVerified:
		return true
	}
	return false
}

// Step はフィーチャーの実装手順の1項目
type Step struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// AcceptanceCriterion はフィーチャーの受け入れ基準の1項目
type AcceptanceCriterion struct {
	Description string `json:"description"`
	Verified    bool   `json:"verified"`
}

// Feature は1つの作業単位を表す
type Feature struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Blocking がtrueの場合、このフィーチャーが検証されるまで依存側は進行できない
	Blocking  bool     `json:"blocking"`
	DependsOn []string `json:"dependsOn,omitempty"`

	Status Status `json:"status"`
	Passes bool   `json:"passes"`
	Sprint int    `json:"sprint"`

	Steps              []Step                `json:"steps,omitempty"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptanceCriteria,omitempty"`

	// 外部トラッキング情報（存在すれば外部での追跡が始まっている）
	GitHubIssue  int    `json:"githubIssue,omitempty"`
	GitHubPR     int    `json:"githubPR,omitempty"`
	GitHubBranch string `json:"githubBranch,omitempty"`
}

// HasTrackingIssue はフィーチャーに外部トラッキング用のIssueが紐付いているかを返す
func (f *Feature) HasTrackingIssue() bool {
	return f.GitHubIssue > 0
}

// Progress はフィーチャーの進捗を表す
type Progress struct {
	StepsCompleted    int
	StepsTotal        int
	CriteriaVerified  int
	CriteriaTotal     int
}

// GetProgress は手順と受け入れ基準の完了数を集計する
// 進捗はレポート専用であり、投入可否の判定には使われない
func (f *Feature) GetProgress() Progress {
	p := Progress{
		StepsTotal:    len(f.Steps),
		CriteriaTotal: len(f.AcceptanceCriteria),
	}
	for _, s := range f.Steps {
		if s.Completed {
			p.StepsCompleted++
		}
	}
	for _, c := range f.AcceptanceCriteria {
		if c.Verified {
			p.CriteriaVerified++
		}
	}
	return p
}

// SprintMeta はスプリントのメタデータ
type SprintMeta struct {
	Number int    `json:"number"`
	Status string `json:"status,omitempty"`
}

// FeatureList はフィーチャーの順序付きリストとプロジェクトメタデータ
// 配列の順序は投入順序とポジション参照の両方に使われるため、保存時も維持される
type FeatureList struct {
	Project  string     `json:"project,omitempty"`
	Sprint   SprintMeta `json:"sprint,omitempty"`
	Features []Feature  `json:"features"`
}

// FindByID はIDでフィーチャーを検索する（見つからない場合はnil）
func (l *FeatureList) FindByID(id string) *Feature {
	for i := range l.Features {
		if l.Features[i].ID == id {
			return &l.Features[i]
		}
	}
	return nil
}
