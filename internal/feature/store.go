package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Store はフィーチャーリストのJSONドキュメントを読み書きする
//
// ドキュメント全体を保持し、フィールド更新はsjsonによるその場書き換えで行う。
// 配列の順序・未知のフィールド・ポジション参照がすべて保存時に維持される。
// 書き込みは一時ファイル + アトミックrenameで行い、ロックファイルは使わない。
//
// 同じドキュメントを複数のStoreが並行して読み書きすることがあるため、
// 更新はフィールド単位のジャーナルとして記録し、保存時にディスク上の
// 最新ドキュメントへ適用し直す。ロード時のスナップショットをそのまま
// 書き戻して他方の更新を巻き戻すことはない。
type Store struct {
	path string
	raw  []byte
	list *FeatureList

	// フィーチャーIDからドキュメント内のJSONパスへのマッピング
	// ロード時に1度だけ解決される（フラット形式とスプリント形式の両対応）
	paths map[string]string

	// 未保存のフィールド更新（保存時にディスク上のドキュメントへ適用し直す）
	updates []fieldUpdate
}

// fieldUpdate は未保存のフィールド更新1件
// featureIDが空の場合はドキュメント直下のフィールドを指す
type fieldUpdate struct {
	featureID string
	field     string
	value     interface{}
}

// saveLocks はドキュメントパスごとの保存ロック
// 同一プロセス内の複数のStoreによる保存の競合を直列化する
var saveLocks sync.Map

func saveLock(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	mu, _ := saveLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Load は指定されたパスからフィーチャーリストを読み込む
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature list: %w", err)
	}

	s := &Store{path: path, raw: raw}
	if err := s.decode(); err != nil {
		return nil, err
	}

	return s, nil
}

// List は正規化されたフィーチャーリストを返す
func (s *Store) List() *FeatureList {
	return s.list
}

// decode は生ドキュメントを正規化されたFeatureListに変換する
//
// ドキュメントの形式は2通りある:
//   - フラット形式:     {"features": [...]}
//   - スプリント形式:   {"sprints": [{"number": N, "features": [...]}, ...]}
//
// どちらの形式かはロード時に1度だけ判定し、以降はフラットな正規形のみを扱う。
func (s *Store) decode() error {
	if !gjson.ValidBytes(s.raw) {
		return fmt.Errorf("feature list %s is not valid JSON", s.path)
	}

	doc := gjson.ParseBytes(s.raw)
	list := &FeatureList{
		Project: doc.Get("project").String(),
	}
	if sprint := doc.Get("sprint"); sprint.Exists() {
		list.Sprint = SprintMeta{
			Number: int(sprint.Get("number").Int()),
			Status: sprint.Get("status").String(),
		}
	}

	if sprints := doc.Get("sprints"); sprints.IsArray() {
		// スプリント形式: sprints[].featuresを平坦化する
		for _, sprint := range sprints.Array() {
			sprintNumber := int(sprint.Get("number").Int())
			for _, raw := range sprint.Get("features").Array() {
				var f Feature
				if err := json.Unmarshal([]byte(raw.Raw), &f); err != nil {
					return fmt.Errorf("failed to parse feature in sprint %d: %w", sprintNumber, err)
				}
				if f.Sprint == 0 {
					f.Sprint = sprintNumber
				}
				list.Features = append(list.Features, f)
			}
		}
	} else {
		// フラット形式
		for fi, raw := range doc.Get("features").Array() {
			var f Feature
			if err := json.Unmarshal([]byte(raw.Raw), &f); err != nil {
				return fmt.Errorf("failed to parse feature at index %d: %w", fi, err)
			}
			list.Features = append(list.Features, f)
		}
	}

	s.list = list
	s.paths = resolvePaths(s.raw)
	return nil
}

// resolvePaths はフィーチャーIDからドキュメント内のJSONパスへの
// マッピングを解決する（フラット形式とスプリント形式の両対応）
func resolvePaths(raw []byte) map[string]string {
	doc := gjson.ParseBytes(raw)
	paths := make(map[string]string)

	if sprints := doc.Get("sprints"); sprints.IsArray() {
		for si, sprint := range sprints.Array() {
			for fi, f := range sprint.Get("features").Array() {
				paths[f.Get("id").String()] = fmt.Sprintf("sprints.%d.features.%d", si, fi)
			}
		}
	} else {
		for fi, f := range doc.Get("features").Array() {
			paths[f.Get("id").String()] = fmt.Sprintf("features.%d", fi)
		}
	}

	return paths
}

// SetFeatureField は指定フィーチャーの1フィールドをドキュメント上で書き換える
func (s *Store) SetFeatureField(id, field string, value interface{}) error {
	path, ok := s.paths[id]
	if !ok {
		return fmt.Errorf("feature %s not found in %s", id, s.path)
	}

	raw, err := sjson.SetBytes(s.raw, path+"."+field, value)
	if err != nil {
		return fmt.Errorf("failed to update feature %s: %w", id, err)
	}
	s.raw = raw
	s.updates = append(s.updates, fieldUpdate{featureID: id, field: field, value: value})

	// 正規形も追従させる
	if f := s.list.FindByID(id); f != nil {
		applyField(f, field, value)
	}

	return nil
}

// Phase はドキュメントに記録された開発フェーズを返す（未記録なら空文字列）
func (s *Store) Phase() string {
	return gjson.GetBytes(s.raw, "phase").String()
}

// SetPhase は開発フェーズをドキュメントに記録する
func (s *Store) SetPhase(phase string) error {
	raw, err := sjson.SetBytes(s.raw, "phase", phase)
	if err != nil {
		return fmt.Errorf("failed to update phase: %w", err)
	}
	s.raw = raw
	s.updates = append(s.updates, fieldUpdate{field: "phase", value: phase})
	return nil
}

// MarkDispatched はフィーチャーをワーカー投入済みとして記録する
func (s *Store) MarkDispatched(id, branch string) error {
	if err := s.SetFeatureField(id, "status", string(StatusInProgress)); err != nil {
		return err
	}
	return s.SetFeatureField(id, "githubBranch", branch)
}

// MarkPromoted はPRのマージ完了をフィーチャーに反映する
func (s *Store) MarkPromoted(id string) error {
	if err := s.SetFeatureField(id, "status", string(StatusVerified)); err != nil {
		return err
	}
	return s.SetFeatureField(id, "passes", true)
}

// Save はドキュメントをアトミックに書き出す
//
// 書き出す内容はロード時のスナップショットではなく、ディスク上の最新
// ドキュメントに未保存のフィールド更新を適用し直したもの。renameまでを
// パスごとのロックで直列化するため、別のStoreが先に保存した互いに素な
// 更新を巻き戻すことはない。
func (s *Store) Save() error {
	lock := saveLock(s.path)
	lock.Lock()
	defer lock.Unlock()

	merged, err := s.mergeOnDisk()
	if err != nil {
		return err
	}

	formatted := pretty.PrettyOptions(merged, &pretty.Options{Indent: "  "})

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".features-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(formatted); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write feature list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace feature list: %w", err)
	}

	// 保存後は統合結果を新しいスナップショットとして引き継ぐ
	s.raw = merged
	if err := s.decode(); err != nil {
		return err
	}
	s.updates = nil

	return nil
}

// mergeOnDisk はディスク上の最新ドキュメントに未保存の更新を適用し直す
//
// フィーチャーのパスは現在のドキュメントに対して解決し直すため、
// 別のStoreによる保存を挟んでも更新は正しいフィーチャーに届く。
// ディスクが読み直せない場合はロード時のスナップショットを使う。
func (s *Store) mergeOnDisk() ([]byte, error) {
	current, err := os.ReadFile(s.path)
	if err != nil || !gjson.ValidBytes(current) {
		return s.raw, nil
	}

	paths := resolvePaths(current)
	merged := current
	for _, u := range s.updates {
		target := u.field
		if u.featureID != "" {
			path, ok := paths[u.featureID]
			if !ok {
				return nil, fmt.Errorf("feature %s not found in %s", u.featureID, s.path)
			}
			target = path + "." + u.field
		}
		merged, err = sjson.SetBytes(merged, target, u.value)
		if err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", target, err)
		}
	}

	return merged, nil
}

func applyField(f *Feature, field string, value interface{}) {
	switch field {
	case "status":
		if s, ok := value.(string); ok {
			f.Status = Status(s)
		}
	case "passes":
		if b, ok := value.(bool); ok {
			f.Passes = b
		}
	case "githubBranch":
		if s, ok := value.(string); ok {
			f.GitHubBranch = s
		}
	case "githubPR":
		switch v := value.(type) {
		case int:
			f.GitHubPR = v
		case float64:
			f.GitHubPR = int(v)
		}
	case "githubIssue":
		switch v := value.(type) {
		case int:
			f.GitHubIssue = v
		case float64:
			f.GitHubIssue = int(v)
		}
	}
}
