package realtime

import (
	"github.com/goccy/go-json"
)

// frame Phoenix 协议帧
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// 协议事件名
const (
	evtJoin          = "phx_join"
	evtLeave         = "phx_leave"
	evtReply         = "phx_reply"
	evtError         = "phx_error"
	evtClose         = "phx_close"
	evtHeartbeat     = "heartbeat"
	evtPresenceState = "presence_state"
	evtPresenceDiff  = "presence_diff"
	evtPostgres      = "postgres_changes"
	evtBroadcast     = "broadcast"
	evtPresence      = "presence"

	heartbeatTopic = "phoenix"
)

// replyPayload phx_reply 的载荷
type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// joinConfig phx_join 的 config 段
type joinConfig struct {
	Broadcast       broadcastConfig  `json:"broadcast"`
	Presence        presenceConfig   `json:"presence"`
	PostgresChanges []PostgresChange `json:"postgres_changes,omitempty"`
}

type broadcastConfig struct {
	Self bool `json:"self"`
	Ack  bool `json:"ack"`
}

type presenceConfig struct {
	Key string `json:"key"`
}

// PostgresChange 行变更订阅配置
type PostgresChange struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// joinPayload phx_join 载荷
type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

// broadcastPayload 广播收发载荷
type broadcastPayload struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// trackPayload presence track 载荷
type trackPayload struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// postgresEvent postgres_changes 事件载荷
type postgresEvent struct {
	Data struct {
		Type   string          `json:"type"`
		Record json.RawMessage `json:"record"`
	} `json:"data"`
	IDs []int64 `json:"ids"`
}
