package service

import (
	"fmt"
	log "log/slog"
	"sort"
	"time"

	"toychat/internal/model"
	"toychat/internal/view"
)

// typingExpiry 输入指示的自动回收时限
const typingExpiry = 4 * time.Second

// PresenceChannel 共享 presence 频道的最小操作面
type PresenceChannel interface {
	Subscribe(onJoined func(err error)) error
	Track(record any) error
	Leave()
}

// PresenceChannelFactory 构造 presence 频道，快照回调已被串行化到事件循环
type PresenceChannelFactory func(key string, onSync func(model.PresenceSnapshot)) PresenceChannel

// PresenceService 在线状态跟踪：发布本端记录，归并快照，
// 对比前后快照产生恰好一次的进出提示。
type PresenceService interface {
	Join(username string) error
	Leave()
	SetTyping(typing bool, convKey string)
	SetInCall(inCall bool)
	// Refresh 重新发布本端记录，由定时任务驱动防止服务端判定超时
	Refresh()
	// Online 当前快照中是否有该用户
	Online(username string) bool
}

type presenceServiceImpl struct {
	factory  PresenceChannelFactory
	renderer view.Renderer
	post     func(func())
	// activeKey 当前会话键提供者，输入指示只对同会话的观察者展示
	activeKey func() string

	channel  PresenceChannel
	username string
	record   model.PresenceRecord

	snapshot model.PresenceSnapshot
	seen     map[string]struct{}
	seeded   bool

	typingSeq int
}

func NewPresenceService(
	factory PresenceChannelFactory,
	renderer view.Renderer,
	post func(func()),
	activeKey func() string,
) PresenceService {
	return &presenceServiceImpl{
		factory:   factory,
		renderer:  renderer,
		post:      post,
		activeKey: activeKey,
		snapshot:  make(model.PresenceSnapshot),
		seen:      make(map[string]struct{}),
	}
}

func (s *presenceServiceImpl) Join(username string) error {
	s.username = username
	s.record = model.PresenceRecord{
		Username: username,
		OnlineAt: time.Now().UTC(),
	}
	s.snapshot = make(model.PresenceSnapshot)
	s.seen = make(map[string]struct{})
	s.seeded = false

	s.channel = s.factory(username, s.handleSnapshot)
	return s.channel.Subscribe(func(err error) {
		if err != nil {
			log.Error("presence 频道订阅失败", "err", err)
			s.renderer.Warning("Could not join the presence channel.")
			return
		}
		if err := s.channel.Track(s.record); err != nil {
			log.Warn("presence 发布失败", "err", err)
		}
	})
}

func (s *presenceServiceImpl) Leave() {
	if s.channel != nil {
		s.channel.Leave()
		s.channel = nil
	}
	s.username = ""
	s.seeded = false
	s.snapshot = make(model.PresenceSnapshot)
	s.seen = make(map[string]struct{})
	s.renderer.SetUserList(nil)
	s.renderer.SetTypingLine("")
}

func (s *presenceServiceImpl) SetTyping(typing bool, convKey string) {
	s.record.Typing = typing
	if typing {
		s.record.TypingIn = convKey
	} else {
		s.record.TypingIn = ""
	}
	s.track()

	if !typing {
		return
	}
	// 停止输入后未显式撤销时到点自动撤销
	s.typingSeq++
	seq := s.typingSeq
	time.AfterFunc(typingExpiry, func() {
		s.post(func() {
			if s.typingSeq != seq || !s.record.Typing {
				return
			}
			s.record.Typing = false
			s.record.TypingIn = ""
			s.track()
		})
	})
}

func (s *presenceServiceImpl) SetInCall(inCall bool) {
	s.record.InCall = inCall
	s.track()
}

func (s *presenceServiceImpl) Refresh() {
	s.record.OnlineAt = time.Now().UTC()
	s.track()
}

func (s *presenceServiceImpl) Online(username string) bool {
	_, ok := s.snapshot[username]
	return ok
}

func (s *presenceServiceImpl) track() {
	if s.channel == nil {
		return
	}
	if err := s.channel.Track(s.record); err != nil {
		log.Warn("presence 发布失败", "err", err)
	}
}

// handleSnapshot 归并全量快照：刷新用户列表与输入指示，
// 并与上一快照求差产生进出提示。首个快照只建立基线，不产生提示。
func (s *presenceServiceImpl) handleSnapshot(snap model.PresenceSnapshot) {
	s.snapshot = snap
	s.renderUserList(snap)
	s.renderTypingLine(snap)

	current := snap.Usernames()
	if !s.seeded {
		s.seeded = true
		s.seen = current
		return
	}

	var joined, left []string
	for name := range current {
		if _, ok := s.seen[name]; !ok && name != s.username {
			joined = append(joined, name)
		}
	}
	for name := range s.seen {
		if _, ok := current[name]; !ok && name != s.username {
			left = append(left, name)
		}
	}
	sort.Strings(joined)
	sort.Strings(left)

	for _, name := range joined {
		s.renderer.SystemNotice(name + " joined")
	}
	for _, name := range left {
		s.renderer.SystemNotice(name + " left")
	}
	s.seen = current
}

func (s *presenceServiceImpl) renderUserList(snap model.PresenceSnapshot) {
	entries := make([]view.UserEntry, 0, len(snap))
	for name := range snap {
		record, _ := snap.First(name)
		entries = append(entries, view.UserEntry{
			Username: name,
			InCall:   record.InCall,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	s.renderer.SetUserList(entries)
}

func (s *presenceServiceImpl) renderTypingLine(snap model.PresenceSnapshot) {
	key := s.activeKey()
	var names []string
	for name := range snap {
		if name == s.username {
			continue
		}
		record, ok := snap.First(name)
		if !ok || !record.Typing || record.TypingIn != key {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	switch len(names) {
	case 0:
		s.renderer.SetTypingLine("")
	case 1:
		s.renderer.SetTypingLine(names[0] + " is typing...")
	default:
		s.renderer.SetTypingLine(fmt.Sprintf("%d people are typing...", len(names)))
	}
}
