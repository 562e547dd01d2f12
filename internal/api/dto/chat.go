package dto

import "time"

// MessageDTO 渲染层的消息明细
type MessageDTO struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	Kind      int8      `json:"kind"` // 1-文本, 2-图片
	Content   string    `json:"content"`
	Edited    bool      `json:"edited"`
	Own       bool      `json:"own"`
	CreatedAt time.Time `json:"created_at"`
}

// UserEntryDTO 在线用户列表项
type UserEntryDTO struct {
	Username string `json:"username"`
	InCall   bool   `json:"in_call"`
}

// ConversationDTO 当前会话
type ConversationDTO struct {
	Key   string `json:"key"`
	DM    bool   `json:"dm"`
	Title string `json:"title"`
}

// UnreadDTO 未读角标
type UnreadDTO struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}
