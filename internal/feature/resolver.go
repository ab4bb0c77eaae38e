package feature

// EffectiveStatus はフィーチャーの実効ステータスを解決する
//
// 依存リスト内のいずれかのIDが blocking=true かつ passes=false のフィーチャーを
// 指している場合に限り blocked となる。非blockingの依存や検証済みのblocking依存は
// ブロック要因にならない。着手済み（in_progress以降）のフィーチャーは依存状態に
// かかわらず自身のステータスを保つ。
//
// リストは高々数百件の想定なので毎回オンデマンドで評価する（キャッシュなし）。
func EffectiveStatus(f *Feature, all []Feature) Status {
	if f.Status.Started() {
		return f.Status
	}

	if len(BlockingDependencies(f, all)) > 0 {
		return StatusBlocked
	}

	return f.Status
}

// BlockingDependencies はフィーチャーをブロックしている依存IDを返す
//
// リストに存在しないIDは未充足として扱う（fail closed）。タイポで依存が
// 静かに外れるのを防ぐため、無視ではなくブロック要因に数える。
func BlockingDependencies(f *Feature, all []Feature) []string {
	var blocking []string

	for _, depID := range f.DependsOn {
		dep := findInList(depID, all)
		if dep == nil {
			// 解決できない依存は充足とみなさない
			blocking = append(blocking, depID)
			continue
		}
		if dep.Blocking && !dep.Passes {
			blocking = append(blocking, depID)
		}
	}

	return blocking
}

func findInList(id string, all []Feature) *Feature {
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
