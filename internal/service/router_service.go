package service

import (
	"context"
	log "log/slog"
	"regexp"
	"slices"

	"toychat/internal/model"
	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/supabase"
	"toychat/internal/repository"
	"toychat/internal/store"
	"toychat/internal/view"

	"github.com/pkg/errors"
)

var roomNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// Feed 一条实时订阅（行变更或广播），用完即弃
type Feed interface {
	Subscribe(onJoined func(err error)) error
	Leave()
}

// MessageFeedFactory 构造某会话键的行变更订阅
type MessageFeedFactory func(convKey string, onMessage func(*model.Message)) Feed

// InboxFactory 构造本端 DM 收件频道
type InboxFactory func(username string, onDirect func(*model.Message)) Feed

// LobbyFeed 房间目录广播频道
type LobbyFeed interface {
	Feed
	Announce(roomName string) error
}

// LobbyFactory 构造房间目录频道
type LobbyFactory func(onRoomCreated func(name string)) LobbyFeed

// RouterService 会话路由：房间与 DM 的切换、创建与目录维护。
// 切换次序固定：先退订旧会话，再装载新会话历史，最后订阅新会话。
type RouterService interface {
	// SetAccount 绑定账号标识，Enter 之前由登录流程调用
	SetAccount(accountID string)
	// Enter 登录完成后进入聊天视图：建立常驻订阅并切入默认房间
	Enter(ctx context.Context, username string) error
	SwitchRoom(ctx context.Context, name string) error
	SwitchDM(ctx context.Context, peer string) error
	CreateRoom(ctx context.Context, name string) error
	// RegisterPeer 把对端补登到 DM 侧栏（幂等）
	RegisterPeer(peer string)
	Reset()
}

type routerServiceImpl struct {
	roomRepo   repository.RoomRepo
	localStore store.LocalStore
	reconciler ReconcileService
	renderer   view.Renderer

	feedFactory  MessageFeedFactory
	inboxFactory InboxFactory
	lobbyFactory LobbyFactory

	username  string
	accountID string
	rooms     []string
	peers     []string

	currentKey  string
	currentFeed Feed
	inbox       Feed
	lobby       LobbyFeed
	switchSeq   int
}

func NewRouterService(
	roomRepo repository.RoomRepo,
	localStore store.LocalStore,
	reconciler ReconcileService,
	renderer view.Renderer,
	feedFactory MessageFeedFactory,
	inboxFactory InboxFactory,
	lobbyFactory LobbyFactory,
) RouterService {
	return &routerServiceImpl{
		roomRepo:     roomRepo,
		localStore:   localStore,
		reconciler:   reconciler,
		renderer:     renderer,
		feedFactory:  feedFactory,
		inboxFactory: inboxFactory,
		lobbyFactory: lobbyFactory,
	}
}

func (s *routerServiceImpl) SetAccount(accountID string) {
	s.accountID = accountID
}

func (s *routerServiceImpl) Enter(ctx context.Context, username string) error {
	s.username = username

	s.inbox = s.inboxFactory(username, s.reconciler.Deliver)
	if err := s.inbox.Subscribe(func(err error) {
		if err != nil {
			log.Error("收件频道订阅失败", "err", err)
		}
	}); err != nil {
		log.Error("收件频道订阅失败", "err", err)
	}

	s.lobby = s.lobbyFactory(s.onRoomCreated)
	if err := s.lobby.Subscribe(func(err error) {
		if err != nil {
			log.Error("房间目录频道订阅失败", "err", err)
		}
	}); err != nil {
		log.Error("房间目录频道订阅失败", "err", err)
	}

	s.loadRooms(ctx)
	s.loadPeers(ctx)

	return s.SwitchRoom(ctx, consts.DefaultRoom)
}

func (s *routerServiceImpl) loadRooms(ctx context.Context) {
	names := []string{consts.DefaultRoom}
	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		if !errors.Is(err, supabase.ErrSchemaMissing) {
			log.Warn("拉取房间目录失败", "err", err)
		}
	} else {
		for _, r := range rooms {
			if !slices.Contains(names, r.Name) {
				names = append(names, r.Name)
			}
		}
	}
	s.rooms = names
	s.renderer.SetRooms(names)
}

func (s *routerServiceImpl) loadPeers(ctx context.Context) {
	peers, err := s.localStore.Peers(ctx, s.accountID)
	if err != nil {
		log.Warn("读取 DM 侧栏失败", "err", err)
		return
	}
	s.peers = peers
	s.renderer.SetPeers(peers)
}

func (s *routerServiceImpl) SwitchRoom(ctx context.Context, name string) error {
	if name == "" {
		return errors.WithStack(ErrParamInvalid)
	}
	return s.switchTo(ctx, name, false, "#"+name)
}

func (s *routerServiceImpl) SwitchDM(ctx context.Context, peer string) error {
	if peer == "" || peer == s.username {
		return errors.WithStack(ErrParamInvalid)
	}
	s.RegisterPeer(peer)
	key := model.ConversationKey(s.username, peer)
	return s.switchTo(ctx, key, true, "@"+peer)
}

// switchTo 切换会话。重复切换到当前会话是无操作，
// A→B→A 的快速往返因此收敛于首次 A 的状态。
func (s *routerServiceImpl) switchTo(ctx context.Context, key string, dm bool, title string) error {
	if key == s.currentKey {
		return nil
	}
	s.switchSeq++
	seq := s.switchSeq

	if s.currentFeed != nil {
		s.currentFeed.Leave()
		s.currentFeed = nil
	}
	s.currentKey = key

	if err := s.reconciler.Activate(ctx, key, dm, title); err != nil {
		return err
	}

	feed := s.feedFactory(key, s.reconciler.Deliver)
	s.currentFeed = feed
	return feed.Subscribe(func(err error) {
		if err != nil && seq == s.switchSeq {
			log.Error("会话订阅失败", "key", key, "err", err)
			s.renderer.Warning("Live updates are unavailable for this conversation.")
		}
	})
}

func (s *routerServiceImpl) CreateRoom(ctx context.Context, name string) error {
	if !roomNamePattern.MatchString(name) {
		return errors.WithStack(ErrParamInvalid)
	}
	if slices.Contains(s.rooms, name) {
		return errors.WithStack(ErrRoomExists)
	}

	if _, err := s.roomRepo.Create(ctx, name, s.username); err != nil {
		switch {
		case errors.Is(err, supabase.ErrConflict):
			return errors.WithStack(ErrRoomExists)
		case errors.Is(err, supabase.ErrSchemaMissing):
			// 目录表缺失时房间只存在于本次会话
			log.Warn("房间目录表缺失，房间仅本地可见", "name", name)
		default:
			log.Error("创建房间失败", "name", name, "err", err)
			return errors.Wrap(ErrRemoteWrite, err.Error())
		}
	}

	s.rooms = append(s.rooms, name)
	s.renderer.SetRooms(s.rooms)

	if s.lobby != nil {
		if err := s.lobby.Announce(name); err != nil {
			log.Warn("房间创建广播失败", "name", name, "err", err)
		}
	}
	return s.SwitchRoom(ctx, name)
}

func (s *routerServiceImpl) onRoomCreated(name string) {
	if name == "" || slices.Contains(s.rooms, name) {
		return
	}
	s.rooms = append(s.rooms, name)
	s.renderer.SetRooms(s.rooms)
}

func (s *routerServiceImpl) RegisterPeer(peer string) {
	if peer == "" || peer == s.username || slices.Contains(s.peers, peer) {
		return
	}
	s.peers = append(s.peers, peer)
	s.renderer.SetPeers(s.peers)
	if err := s.localStore.AddPeer(context.Background(), s.accountID, peer); err != nil {
		log.Warn("DM 侧栏落盘失败", "peer", peer, "err", err)
	}
}

func (s *routerServiceImpl) Reset() {
	if s.currentFeed != nil {
		s.currentFeed.Leave()
		s.currentFeed = nil
	}
	if s.inbox != nil {
		s.inbox.Leave()
		s.inbox = nil
	}
	if s.lobby != nil {
		s.lobby.Leave()
		s.lobby = nil
	}
	s.username = ""
	s.accountID = ""
	s.currentKey = ""
	s.rooms = nil
	s.peers = nil
	s.switchSeq++
}
