package service

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"toychat/internal/model"
	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/supabase"
	"toychat/internal/repository"
	"toychat/internal/store"
	"toychat/internal/view"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DirectSender 把 DM 消息经广播通道推给对端（数据库写入之外的快路径）
type DirectSender func(peer string, m *model.Message) error

// PeerHook 收到来自新对端的 DM 时触发（用于侧栏补登对端）
type PeerHook func(peer string)

// ReconcileService 消息收发与双通道去重。
// 每条消息可能同时经广播与行变更两条通道到达，外加发送方的乐观回显，
// 以消息标识为准保证渲染恰好一次。
type ReconcileService interface {
	// Bind 登录后绑定账号并恢复各会话的未读计数
	Bind(ctx context.Context, accountID, username string) error
	// Activate 激活会话：清空消息区、拉取历史、清零未读、恢复置顶
	Activate(ctx context.Context, convKey string, dm bool, title string) error
	// Deliver 任一通道到达的消息都从这里进入
	Deliver(m *model.Message)
	Send(ctx context.Context, content string) error
	SendImage(ctx context.Context, path string) error
	Edit(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	Pin(ctx context.Context, id string) error
	Unpin(ctx context.Context, id string) error
	ActiveKey() string
	SetDirectSender(fn DirectSender)
	SetPeerHook(fn PeerHook)
	// Reset 登出时清空绑定状态
	Reset()
}

type reconcileServiceImpl struct {
	messageRepo repository.MessageRepo
	localStore  store.LocalStore
	sb          *supabase.Client
	renderer    view.Renderer

	accountID string
	username  string
	activeKey string

	unread       map[string]uint64
	directSender DirectSender
	peerHook     PeerHook
	schemaWarned bool
}

func NewReconcileService(
	messageRepo repository.MessageRepo,
	localStore store.LocalStore,
	sb *supabase.Client,
	renderer view.Renderer,
) ReconcileService {
	return &reconcileServiceImpl{
		messageRepo: messageRepo,
		localStore:  localStore,
		sb:          sb,
		renderer:    renderer,
		unread:      make(map[string]uint64),
	}
}

func (s *reconcileServiceImpl) SetDirectSender(fn DirectSender) { s.directSender = fn }
func (s *reconcileServiceImpl) SetPeerHook(fn PeerHook)         { s.peerHook = fn }
func (s *reconcileServiceImpl) ActiveKey() string               { return s.activeKey }

func (s *reconcileServiceImpl) Bind(ctx context.Context, accountID, username string) error {
	s.accountID = accountID
	s.username = username

	counts, err := s.localStore.Unread(ctx, accountID)
	if err != nil {
		log.Warn("恢复未读计数失败", "err", err)
		return nil
	}
	s.unread = counts
	for key, n := range counts {
		s.renderer.SetUnread(key, n)
	}
	return nil
}

func (s *reconcileServiceImpl) Activate(ctx context.Context, convKey string, dm bool, title string) error {
	s.activeKey = convKey
	s.renderer.ClearMessages()
	s.renderer.SetConversation(convKey, dm, title)

	backlog, err := s.messageRepo.Backlog(ctx, convKey, consts.BacklogLimit)
	if err != nil {
		if errors.Is(err, supabase.ErrSchemaMissing) {
			s.warnSchemaOnce()
		} else {
			log.Error("拉取历史消息失败", "key", convKey, "err", err)
			s.renderer.Warning("Could not load message history.")
		}
		backlog = nil
	}
	for _, m := range backlog {
		if s.renderer.HasMessage(m.ID) {
			continue
		}
		s.renderer.RenderMessage(m, m.Username == s.username)
	}

	if s.unread[convKey] != 0 {
		s.unread[convKey] = 0
		if err := s.localStore.SetUnread(ctx, s.accountID, convKey, 0); err != nil {
			log.Warn("未读计数落盘失败", "key", convKey, "err", err)
		}
	}
	s.renderer.SetUnread(convKey, 0)

	pinned, err := s.localStore.PinnedIDs(ctx, s.accountID, convKey)
	if err != nil {
		log.Warn("读取置顶列表失败", "key", convKey, "err", err)
		pinned = nil
	}
	s.renderer.SetPinned(pinned)
	return nil
}

// Deliver 去重后按会话归属渲染或计未读。
// 同一消息的第二次到达（无论来自哪条通道）在 HasMessage 处截断。
func (s *reconcileServiceImpl) Deliver(m *model.Message) {
	if m == nil || m.ID == "" {
		return
	}
	if s.renderer.HasMessage(m.ID) {
		return
	}

	if m.Room == s.activeKey {
		s.renderer.RenderMessage(m, m.Username == s.username)
		return
	}

	// 非活跃会话：计未读，来自陌生对端的 DM 顺带补登侧栏
	s.unread[m.Room]++
	count := s.unread[m.Room]
	s.renderer.SetUnread(m.Room, count)
	if err := s.localStore.SetUnread(context.Background(), s.accountID, m.Room, count); err != nil {
		log.Warn("未读计数落盘失败", "key", m.Room, "err", err)
	}

	if m.Username != s.username && model.IsPairKey(m.Room, s.username) && s.peerHook != nil {
		if peer := model.PairPeer(m.Room, s.username); peer != "" {
			s.peerHook(peer)
		}
	}
}

func (s *reconcileServiceImpl) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	m := model.NewTextMessage(s.activeKey, s.username, content)
	return s.dispatch(ctx, m, content)
}

func (s *reconcileServiceImpl) SendImage(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(ErrParamInvalid, err.Error())
	}

	objectName := fmt.Sprintf("%s/%s%s", s.username, uuid.New().String(), filepath.Ext(path))
	url, err := s.sb.UploadObject(ctx, consts.ImageBucket, objectName, data, contentTypeOf(path))
	if err != nil {
		log.Error("图片上传失败", "path", path, "err", err)
		s.renderer.Warning("Image upload failed.")
		return errors.Wrap(ErrRemoteWrite, err.Error())
	}

	m := model.NewImageMessage(s.activeKey, s.username, url)
	return s.dispatch(ctx, m, "")
}

// dispatch 乐观回显后落库，失败回滚回显并还原输入框
func (s *reconcileServiceImpl) dispatch(ctx context.Context, m *model.Message, composer string) error {
	s.renderer.RenderMessage(m, true)

	saved, err := s.messageRepo.Insert(ctx, m)
	if err != nil {
		s.renderer.RemoveMessage(m.ID)
		if composer != "" {
			s.renderer.RestoreComposer(composer)
		}
		if errors.Is(err, supabase.ErrSchemaMissing) {
			s.warnSchemaOnce()
			return nil
		}
		log.Error("消息写入失败", "id", m.ID, "err", err)
		s.renderer.Warning("Message could not be sent.")
		return errors.Wrap(ErrRemoteWrite, err.Error())
	}

	// DM 再走一次广播快路径，失败不影响已落库的消息
	if model.IsPairKey(m.Room, s.username) && s.directSender != nil {
		peer := model.PairPeer(m.Room, s.username)
		if err := s.directSender(peer, saved); err != nil {
			log.Warn("DM 广播失败", "peer", peer, "err", err)
		}
	}
	return nil
}

func (s *reconcileServiceImpl) Edit(ctx context.Context, id, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.WithStack(ErrParamInvalid)
	}

	updated, err := s.messageRepo.UpdateContent(ctx, id, s.username, content)
	if err != nil {
		if errors.Is(err, supabase.ErrSchemaMissing) {
			s.warnSchemaOnce()
			return nil
		}
		log.Error("消息编辑失败", "id", id, "err", err)
		return errors.Wrap(ErrRemoteWrite, err.Error())
	}
	if updated == nil {
		return errors.WithStack(ErrNotMessageOwner)
	}
	s.renderer.UpdateMessage(updated)
	return nil
}

func (s *reconcileServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.messageRepo.Delete(ctx, id, s.username); err != nil {
		if errors.Is(err, supabase.ErrSchemaMissing) {
			s.warnSchemaOnce()
			return nil
		}
		log.Error("消息删除失败", "id", id, "err", err)
		return errors.Wrap(ErrRemoteWrite, err.Error())
	}
	s.renderer.RemoveMessage(id)
	if err := s.localStore.Unpin(ctx, s.accountID, id); err != nil {
		log.Warn("清理置顶记录失败", "id", id, "err", err)
	}
	return nil
}

func (s *reconcileServiceImpl) Pin(ctx context.Context, id string) error {
	if err := s.localStore.Pin(ctx, s.accountID, s.activeKey, id); err != nil {
		return errors.Wrap(UnExpectedError, err.Error())
	}
	return s.refreshPinned(ctx)
}

func (s *reconcileServiceImpl) Unpin(ctx context.Context, id string) error {
	if err := s.localStore.Unpin(ctx, s.accountID, id); err != nil {
		return errors.Wrap(UnExpectedError, err.Error())
	}
	return s.refreshPinned(ctx)
}

func (s *reconcileServiceImpl) refreshPinned(ctx context.Context) error {
	ids, err := s.localStore.PinnedIDs(ctx, s.accountID, s.activeKey)
	if err != nil {
		return errors.Wrap(UnExpectedError, err.Error())
	}
	s.renderer.SetPinned(ids)
	return nil
}

func (s *reconcileServiceImpl) Reset() {
	s.accountID = ""
	s.username = ""
	s.activeKey = ""
	s.unread = make(map[string]uint64)
	s.schemaWarned = false
}

// warnSchemaOnce 后端表缺失只提示一次，之后静默降级
func (s *reconcileServiceImpl) warnSchemaOnce() {
	if s.schemaWarned {
		return
	}
	s.schemaWarned = true
	log.Warn("后端数据表未初始化，消息功能降级")
	s.renderer.Warning("Database tables are not set up yet. Run the setup script, then restart.")
}

func contentTypeOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
