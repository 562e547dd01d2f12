package realtime

import (
	"github.com/goccy/go-json"
)

// RawSnapshot 全量 presence 快照：key -> 各写者发布的元数据（通常单元素）
type RawSnapshot map[string][]json.RawMessage

type presenceEntry struct {
	Metas []json.RawMessage `json:"metas"`
}

type presenceDiff struct {
	Joins  map[string]presenceEntry `json:"joins"`
	Leaves map[string]presenceEntry `json:"leaves"`
}

// decodeState 解析 presence_state 载荷
func decodeState(payload json.RawMessage) (RawSnapshot, error) {
	var entries map[string]presenceEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, err
	}
	snap := make(RawSnapshot, len(entries))
	for key, entry := range entries {
		snap[key] = entry.Metas
	}
	return snap, nil
}

// applyDiff 把 presence_diff 套用到现有快照，返回新的全量快照
func applyDiff(snap RawSnapshot, payload json.RawMessage) (RawSnapshot, error) {
	var diff presenceDiff
	if err := json.Unmarshal(payload, &diff); err != nil {
		return snap, err
	}

	next := make(RawSnapshot, len(snap))
	for key, metas := range snap {
		next[key] = metas
	}
	for key := range diff.Leaves {
		delete(next, key)
	}
	for key, entry := range diff.Joins {
		next[key] = entry.Metas
	}
	return next, nil
}
