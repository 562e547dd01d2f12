package realtime

import (
	"errors"
	log "log/slog"

	"github.com/goccy/go-json"
)

// State 频道订阅状态机：disconnected → subscribing → subscribed
type State int

const (
	StateDisconnected State = iota
	StateSubscribing
	StateSubscribed
)

// Channel 单个 realtime 频道：presence、广播与行变更订阅共用同一状态机
type Channel struct {
	client *Client
	topic  string
	state  State

	presenceKey     string
	broadcastSelf   bool
	postgresChanges []PostgresChange

	onJoined     func(err error)
	onBroadcast  map[string]func(payload json.RawMessage)
	onInsert     func(record json.RawMessage)
	onSync       func(snapshot RawSnapshot)
	presence     RawSnapshot
}

func newChannel(c *Client, topic string) *Channel {
	return &Channel{
		client:      c,
		topic:       topic,
		state:       StateDisconnected,
		onBroadcast: make(map[string]func(json.RawMessage)),
		presence:    make(RawSnapshot),
	}
}

// State 当前订阅状态
func (ch *Channel) State() State {
	return ch.state
}

// WithPresenceKey 以指定 key 参与 presence（每个用户名唯一写者）
func (ch *Channel) WithPresenceKey(key string) *Channel {
	ch.presenceKey = key
	return ch
}

// WithPostgresChanges 订阅行变更
func (ch *Channel) WithPostgresChanges(changes ...PostgresChange) *Channel {
	ch.postgresChanges = append(ch.postgresChanges, changes...)
	return ch
}

// OnBroadcast 注册广播事件回调
func (ch *Channel) OnBroadcast(event string, fn func(payload json.RawMessage)) *Channel {
	ch.onBroadcast[event] = fn
	return ch
}

// OnInsert 注册行插入回调
func (ch *Channel) OnInsert(fn func(record json.RawMessage)) *Channel {
	ch.onInsert = fn
	return ch
}

// OnSync 注册 presence 全量快照回调，state 与 diff 均归一为全量快照
func (ch *Channel) OnSync(fn func(snapshot RawSnapshot)) *Channel {
	ch.onSync = fn
	return ch
}

// Subscribe 发起订阅，onJoined 在服务端应答后回调
func (ch *Channel) Subscribe(onJoined func(err error)) error {
	ch.state = StateSubscribing
	ch.onJoined = onJoined

	payload := joinPayload{
		Config: joinConfig{
			Broadcast:       broadcastConfig{Self: ch.broadcastSelf},
			Presence:        presenceConfig{Key: ch.presenceKey},
			PostgresChanges: ch.postgresChanges,
		},
		AccessToken: ch.client.currentToken(),
	}

	return ch.client.push(ch.topic, evtJoin, payload, func(ok bool, _ json.RawMessage) {
		if ok {
			ch.state = StateSubscribed
		} else {
			ch.state = StateDisconnected
		}
		if ch.onJoined != nil {
			if ok {
				ch.onJoined(nil)
			} else {
				ch.onJoined(errors.New("channel join rejected"))
			}
		}
	})
}

// Track 发布本端 presence 记录（整条覆盖，last-write-wins）
func (ch *Channel) Track(record any) error {
	return ch.client.push(ch.topic, evtPresence, trackPayload{
		Type:    "presence",
		Event:   "track",
		Payload: record,
	}, nil)
}

// Send 发送广播事件
func (ch *Channel) Send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return ch.client.push(ch.topic, evtBroadcast, broadcastPayload{
		Type:    "broadcast",
		Event:   event,
		Payload: raw,
	}, nil)
}

// Leave 退出频道。切换会话或登出前必须先退订，防止旧频道事件串入新视图。
func (ch *Channel) Leave() {
	ch.state = StateDisconnected
	_ = ch.client.push(ch.topic, evtLeave, map[string]any{}, nil)
	ch.client.forget(ch.topic)
}

func (ch *Channel) handle(f *frame) {
	switch f.Event {
	case evtPresenceState:
		snap, err := decodeState(f.Payload)
		if err != nil {
			log.Warn("presence_state 解析失败", "topic", ch.topic, "err", err)
			return
		}
		ch.presence = snap
		ch.emitSync()

	case evtPresenceDiff:
		snap, err := applyDiff(ch.presence, f.Payload)
		if err != nil {
			log.Warn("presence_diff 解析失败", "topic", ch.topic, "err", err)
			return
		}
		ch.presence = snap
		ch.emitSync()

	case evtPostgres:
		if ch.onInsert == nil {
			return
		}
		var evt postgresEvent
		if err := json.Unmarshal(f.Payload, &evt); err != nil {
			log.Warn("postgres_changes 解析失败", "topic", ch.topic, "err", err)
			return
		}
		if evt.Data.Type == "INSERT" {
			ch.onInsert(evt.Data.Record)
		}

	case evtBroadcast:
		var payload broadcastPayload
		if err := json.Unmarshal(f.Payload, &payload); err != nil {
			log.Warn("broadcast 解析失败", "topic", ch.topic, "err", err)
			return
		}
		if fn := ch.onBroadcast[payload.Event]; fn != nil {
			fn(payload.Payload)
		}

	case evtError, evtClose:
		ch.state = StateDisconnected
	}
}

func (ch *Channel) emitSync() {
	if ch.onSync != nil {
		ch.onSync(ch.presence)
	}
}
