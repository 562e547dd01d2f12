package view

import (
	"toychat/internal/model"
)

// UserEntry 在线用户列表项
type UserEntry struct {
	Username string
	InCall   bool
}

// Renderer 渲染面契约。组件只通过它触达界面，渲染壳的差异被隔离在实现里。
type Renderer interface {
	// 视图切换
	ShowLogin()
	ShowChat(username string)

	// 消息区
	RenderMessage(m *model.Message, own bool)
	// HasMessage 某标识的消息是否已渲染，双通道去重的判定依据
	HasMessage(id string) bool
	UpdateMessage(m *model.Message)
	RemoveMessage(id string)
	ClearMessages()
	SystemNotice(text string)
	Warning(text string)
	// RestoreComposer 发送失败时把正文放回输入框，内容不丢失
	RestoreComposer(text string)

	// 侧栏
	SetUserList(entries []UserEntry)
	SetTypingLine(text string)
	SetUnread(convKey string, count uint64)
	SetRooms(rooms []string)
	SetPeers(peers []string)
	SetPinned(ids []string)
	SetConversation(key string, dm bool, title string)

	// 通话区
	AddTile(name string, local bool)
	RemoveTile(name string)
	ClearTiles()
	SetCallState(connected bool)
}
