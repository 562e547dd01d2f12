package view

import (
	log "log/slog"

	"toychat/internal/api/dto"
	"toychat/internal/model"

	"github.com/jinzhu/copier"
)

// EventSink 渲染事件出口，由桥接层实现（推给渲染壳）
type EventSink interface {
	Emit(event string, payload any)
}

// 渲染事件名
const (
	EvShowLogin       = "show_login"
	EvShowChat        = "show_chat"
	EvMessage         = "message"
	EvMessageUpdated  = "message_updated"
	EvMessageRemoved  = "message_removed"
	EvMessagesCleared = "messages_cleared"
	EvSystemNotice    = "system_notice"
	EvWarning         = "warning"
	EvComposer        = "composer_restore"
	EvUserList        = "user_list"
	EvTypingLine      = "typing_line"
	EvUnread          = "unread"
	EvRooms           = "rooms"
	EvPeers           = "peers"
	EvPinned          = "pinned"
	EvConversation    = "conversation"
	EvScreenSources   = "screen_sources"
	EvTileAdded       = "tile_added"
	EvTileRemoved     = "tile_removed"
	EvTilesCleared    = "tiles_cleared"
	EvCallState       = "call_state"
)

// BridgeRenderer 把渲染契约翻译成桥接事件，并维护"已渲染消息标识"集合。
// 该集合就是双通道去重的"是否已有该元素"判定。
type BridgeRenderer struct {
	sink     EventSink
	rendered map[string]struct{}
}

func NewBridgeRenderer(sink EventSink) *BridgeRenderer {
	return &BridgeRenderer{
		sink:     sink,
		rendered: make(map[string]struct{}),
	}
}

func (r *BridgeRenderer) ShowLogin() { r.sink.Emit(EvShowLogin, nil) }

func (r *BridgeRenderer) ShowChat(username string) {
	r.sink.Emit(EvShowChat, map[string]string{"username": username})
}

func (r *BridgeRenderer) RenderMessage(m *model.Message, own bool) {
	r.rendered[m.ID] = struct{}{}
	r.sink.Emit(EvMessage, r.toDTO(m, own))
}

func (r *BridgeRenderer) HasMessage(id string) bool {
	_, ok := r.rendered[id]
	return ok
}

func (r *BridgeRenderer) UpdateMessage(m *model.Message) {
	if !r.HasMessage(m.ID) {
		return
	}
	r.sink.Emit(EvMessageUpdated, r.toDTO(m, false))
}

func (r *BridgeRenderer) RemoveMessage(id string) {
	delete(r.rendered, id)
	r.sink.Emit(EvMessageRemoved, map[string]string{"id": id})
}

func (r *BridgeRenderer) ClearMessages() {
	r.rendered = make(map[string]struct{})
	r.sink.Emit(EvMessagesCleared, nil)
}

func (r *BridgeRenderer) SystemNotice(text string) {
	r.sink.Emit(EvSystemNotice, map[string]string{"text": text})
}

func (r *BridgeRenderer) Warning(text string) {
	r.sink.Emit(EvWarning, map[string]string{"text": text})
}

func (r *BridgeRenderer) RestoreComposer(text string) {
	r.sink.Emit(EvComposer, map[string]string{"text": text})
}

func (r *BridgeRenderer) SetUserList(entries []UserEntry) {
	list := make([]dto.UserEntryDTO, 0, len(entries))
	if err := copier.Copy(&list, &entries); err != nil {
		log.Warn("用户列表转换失败", "err", err)
		return
	}
	r.sink.Emit(EvUserList, list)
}

func (r *BridgeRenderer) SetTypingLine(text string) {
	r.sink.Emit(EvTypingLine, map[string]string{"text": text})
}

func (r *BridgeRenderer) SetUnread(convKey string, count uint64) {
	r.sink.Emit(EvUnread, dto.UnreadDTO{Key: convKey, Count: count})
}

func (r *BridgeRenderer) SetRooms(rooms []string) { r.sink.Emit(EvRooms, rooms) }

func (r *BridgeRenderer) SetPeers(peers []string) { r.sink.Emit(EvPeers, peers) }

func (r *BridgeRenderer) SetPinned(ids []string) { r.sink.Emit(EvPinned, ids) }

func (r *BridgeRenderer) SetConversation(key string, dm bool, title string) {
	r.sink.Emit(EvConversation, dto.ConversationDTO{Key: key, DM: dm, Title: title})
}

func (r *BridgeRenderer) AddTile(name string, local bool) {
	r.sink.Emit(EvTileAdded, map[string]any{"name": name, "local": local})
}

func (r *BridgeRenderer) RemoveTile(name string) {
	r.sink.Emit(EvTileRemoved, map[string]string{"name": name})
}

func (r *BridgeRenderer) ClearTiles() { r.sink.Emit(EvTilesCleared, nil) }

func (r *BridgeRenderer) SetCallState(connected bool) {
	r.sink.Emit(EvCallState, map[string]bool{"connected": connected})
}

func (r *BridgeRenderer) toDTO(m *model.Message, own bool) dto.MessageDTO {
	return dto.MessageDTO{
		ID:        m.ID,
		Room:      m.Room,
		Username:  m.Username,
		Kind:      int8(m.Kind),
		Content:   m.Content,
		Edited:    m.Edited(),
		Own:       own,
		CreatedAt: m.CreatedAt,
	}
}
