package handler

import (
	log "log/slog"
	"sync"
	"time"

	"toychat/internal/api/dto"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Hub 渲染壳连接的单点出口。同一时刻只服务一个壳，
// 新连接顶替旧连接。实现 view.EventSink。
type Hub struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewHub() *Hub {
	return &Hub{}
}

// Attach 登记新连接，返回被顶替的旧连接（由调用方关闭）
func (h *Hub) Attach(conn *websocket.Conn) *websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.conn
	h.conn = conn
	return old
}

// Detach 注销连接。只有当前连接才会被摘除，防止旧连接的收尾摘掉新连接。
func (h *Hub) Detach(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == conn {
		h.conn = nil
	}
}

// Emit 推送渲染事件。无连接时静默丢弃，壳重连后靠状态重放补齐。
func (h *Hub) Emit(event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return
	}

	data, err := json.Marshal(dto.BridgeEvent{Type: event, Payload: payload})
	if err != nil {
		log.Error("渲染事件序列化失败", "event", event, "err", err)
		return
	}

	_ = h.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn("渲染事件推送失败", "event", event, "err", err)
	}
}
