package wire

import (
	"context"
	log "log/slog"

	"toychat/internal/api/dto"
	"toychat/internal/model"
	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/realtime"
	"toychat/internal/pkg/supabase"
	"toychat/internal/service"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// 本文件把 realtime 频道适配成各服务声明的端口。
// 频道回调已由 realtime 客户端投递到事件循环，适配层只做解码。

// presenceChannel 适配 service.PresenceChannel
type presenceChannel struct {
	ch *realtime.Channel
}

func (p *presenceChannel) Subscribe(onJoined func(err error)) error { return p.ch.Subscribe(onJoined) }
func (p *presenceChannel) Track(record any) error                   { return p.ch.Track(record) }
func (p *presenceChannel) Leave()                                   { p.ch.Leave() }

func newPresenceFactory(rt *realtime.Client) service.PresenceChannelFactory {
	return func(key string, onSync func(model.PresenceSnapshot)) service.PresenceChannel {
		ch := rt.Channel(consts.PresenceTopic).
			WithPresenceKey(key).
			OnSync(func(raw realtime.RawSnapshot) {
				onSync(decodeSnapshot(raw))
			})
		return &presenceChannel{ch: ch}
	}
}

// decodeSnapshot 把原始 presence 元数据解码成领域快照。
// 解不开的记录按"在线但无详情"处理，至少保住用户名。
func decodeSnapshot(raw realtime.RawSnapshot) model.PresenceSnapshot {
	snap := make(model.PresenceSnapshot, len(raw))
	for key, metas := range raw {
		records := make([]model.PresenceRecord, 0, len(metas))
		for _, meta := range metas {
			var rec model.PresenceRecord
			if err := json.Unmarshal(meta, &rec); err != nil || rec.Username == "" {
				rec = model.PresenceRecord{Username: key}
			}
			records = append(records, rec)
		}
		snap[key] = records
	}
	return snap
}

// messageFeed 适配 service.Feed（行变更订阅）
type messageFeed struct {
	ch *realtime.Channel
}

func (f *messageFeed) Subscribe(onJoined func(err error)) error { return f.ch.Subscribe(onJoined) }
func (f *messageFeed) Leave()                                   { f.ch.Leave() }

func newMessageFeedFactory(rt *realtime.Client) service.MessageFeedFactory {
	return func(convKey string, onMessage func(*model.Message)) service.Feed {
		ch := rt.Channel(consts.MessagesTopicPrefix+convKey).
			WithPostgresChanges(realtime.PostgresChange{
				Event:  "INSERT",
				Schema: "public",
				Table:  consts.MessagesTable,
				Filter: "room=eq." + convKey,
			}).
			OnInsert(func(record json.RawMessage) {
				var m model.Message
				if err := json.Unmarshal(record, &m); err != nil {
					log.Warn("行变更消息解析失败", "key", convKey, "err", err)
					return
				}
				onMessage(&m)
			})
		return &messageFeed{ch: ch}
	}
}

func newInboxFactory(rt *realtime.Client) service.InboxFactory {
	return func(username string, onDirect func(*model.Message)) service.Feed {
		ch := rt.Channel(consts.InboxTopicPrefix+username).
			OnBroadcast(consts.EventDirectMessage, func(payload json.RawMessage) {
				var m model.Message
				if err := json.Unmarshal(payload, &m); err != nil {
					log.Warn("DM 广播解析失败", "err", err)
					return
				}
				onDirect(&m)
			})
		return &messageFeed{ch: ch}
	}
}

// lobbyFeed 适配 service.LobbyFeed
type lobbyFeed struct {
	ch *realtime.Channel
}

func (f *lobbyFeed) Subscribe(onJoined func(err error)) error { return f.ch.Subscribe(onJoined) }
func (f *lobbyFeed) Leave()                                   { f.ch.Leave() }

func (f *lobbyFeed) Announce(roomName string) error {
	return f.ch.Send(consts.EventRoomCreated, map[string]string{"name": roomName})
}

func newLobbyFactory(rt *realtime.Client) service.LobbyFactory {
	return func(onRoomCreated func(name string)) service.LobbyFeed {
		ch := rt.Channel(consts.LobbyTopic).
			OnBroadcast(consts.EventRoomCreated, func(payload json.RawMessage) {
				var body struct {
					Name string `json:"name"`
				}
				if err := json.Unmarshal(payload, &body); err != nil {
					log.Warn("房间创建广播解析失败", "err", err)
					return
				}
				onRoomCreated(body.Name)
			})
		return &lobbyFeed{ch: ch}
	}
}

// directSender 把 DM 推到对端收件频道。对每个对端惰性建立频道，
// 订阅完成前的消息先排队，join 应答后冲刷。
type directSender struct {
	rt       *realtime.Client
	channels map[string]*peerChannel
}

type peerChannel struct {
	ch      *realtime.Channel
	joined  bool
	pending []*model.Message
}

func newDirectSender(rt *realtime.Client) *directSender {
	return &directSender{
		rt:       rt,
		channels: make(map[string]*peerChannel),
	}
}

func (s *directSender) Send(peer string, m *model.Message) error {
	pc, ok := s.channels[peer]
	if !ok {
		pc = &peerChannel{ch: s.rt.Channel(consts.InboxTopicPrefix + peer)}
		s.channels[peer] = pc
		if err := pc.ch.Subscribe(func(err error) {
			if err != nil {
				log.Warn("对端收件频道订阅失败", "peer", peer, "err", err)
				delete(s.channels, peer)
				return
			}
			pc.joined = true
			for _, queued := range pc.pending {
				if err := pc.ch.Send(consts.EventDirectMessage, queued); err != nil {
					log.Warn("DM 补发失败", "peer", peer, "err", err)
				}
			}
			pc.pending = nil
		}); err != nil {
			delete(s.channels, peer)
			return err
		}
	}

	if !pc.joined {
		pc.pending = append(pc.pending, m)
		return nil
	}
	return pc.ch.Send(consts.EventDirectMessage, m)
}

// Reset 登出时丢弃全部对端频道
func (s *directSender) Reset() {
	for peer, pc := range s.channels {
		pc.ch.Leave()
		delete(s.channels, peer)
	}
}

// newTokenFetcher 经 Edge Function 换取入会令牌
func newTokenFetcher(sb *supabase.Client, functionName string) service.TokenFetcher {
	return func(ctx context.Context, roomName, participant string) (string, error) {
		var resp dto.TokenResp
		err := sb.InvokeFunction(ctx, functionName, dto.TokenReq{
			RoomName:        roomName,
			ParticipantName: participant,
		}, &resp)
		if err != nil {
			return "", err
		}
		if resp.Error != "" {
			return "", errors.New(resp.Error)
		}
		if resp.Token == "" {
			return "", errors.New("empty token in response")
		}
		return resp.Token, nil
	}
}
