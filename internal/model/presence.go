package model

import "time"

// PresenceRecord 用户在共享 presence 频道上发布的状态记录。
// 每个用户名只有唯一写者，整条记录整体覆盖发布（last-write-wins）。
type PresenceRecord struct {
	Username string    `json:"user"`
	OnlineAt time.Time `json:"online_at"`
	InCall   bool      `json:"in_call"`
	Typing   bool      `json:"typing"`
	// TypingIn 正在输入的会话键，其他会话的观察者不展示该指示
	TypingIn string `json:"typing_in,omitempty"`
}

// PresenceSnapshot 全量快照：用户名 -> 该用户发布的记录列表（通常单元素）
type PresenceSnapshot map[string][]PresenceRecord

// Usernames 快照中的在线用户名集合
func (s PresenceSnapshot) Usernames() map[string]struct{} {
	set := make(map[string]struct{}, len(s))
	for name := range s {
		set[name] = struct{}{}
	}
	return set
}

// First 取某用户的首条记录
func (s PresenceSnapshot) First(username string) (PresenceRecord, bool) {
	records := s[username]
	if len(records) == 0 {
		return PresenceRecord{}, false
	}
	return records[0], true
}
