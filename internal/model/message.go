package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageKind 消息类型，构造时一次性确定，渲染时不再嗅探正文
type MessageKind int8

const (
	KindText  MessageKind = 1 // 文本
	KindImage MessageKind = 2 // 图片
)

// Message 消息行，由发送端创建、托管数据库持久化
type Message struct {
	ID string `json:"id"`
	// Room 会话键：房间名，或 DM 的对称 PairKey
	Room     string      `json:"room"`
	Username string      `json:"username"`
	Kind     MessageKind `json:"kind"`
	Content  string      `json:"content"`
	EditedAt *time.Time  `json:"edited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewTextMessage 构造文本消息，ID 由客户端生成以便乐观回显与广播共享同一标识
func NewTextMessage(room, username, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Room:      room,
		Username:  username,
		Kind:      KindText,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewImageMessage 构造图片消息，Content 为图片地址
func NewImageMessage(room, username, url string) *Message {
	m := NewTextMessage(room, username, url)
	m.Kind = KindImage
	return m
}

// Edited 是否被编辑过
func (m *Message) Edited() bool {
	return m.EditedAt != nil
}

// ConversationKey 计算 DM 的对称会话键：按字典序排序后拼接。
// key(a,b) == key(b,a) 是 DM 子系统赖以工作的不变式。
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// IsPairKey 判断会话键是否形如 DM PairKey 且包含指定用户
func IsPairKey(key, username string) bool {
	if !strings.Contains(key, "_") {
		return false
	}
	return strings.HasPrefix(key, username+"_") || strings.HasSuffix(key, "_"+username)
}

// PairPeer 从 PairKey 中解析对端用户名
func PairPeer(key, username string) string {
	if s, ok := strings.CutPrefix(key, username+"_"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(key, "_"+username); ok {
		return s
	}
	return ""
}
