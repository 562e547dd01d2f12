package service

import (
	"context"
	log "log/slog"

	"toychat/internal/pkg/capture"
	"toychat/internal/pkg/media"
	"toychat/internal/view"

	"github.com/pkg/errors"
)

// CallState 通话状态机：idle → connecting → connected
type CallState int

const (
	CallIdle CallState = iota
	CallConnecting
	CallConnected
)

// TokenFetcher 获取入会令牌
type TokenFetcher func(ctx context.Context, roomName, participant string) (string, error)

// CallService 通话控制。Join/Leave 幂等，任何失败都回到 idle，
// 不存在打挂宿主进程的通话错误。
type CallService interface {
	Join(ctx context.Context, roomName, username string) error
	Leave()
	SetMicMuted(muted bool)
	SetCameraMuted(muted bool)
	ShareScreen(sourceID string)
	StopShare()
	SwitchDevice(kind, deviceID string)
	ScreenSources() ([]capture.Source, error)
	State() CallState
}

type callServiceImpl struct {
	fetchToken TokenFetcher
	connector  media.Connector
	picker     capture.Picker
	presence   PresenceService
	renderer   view.Renderer
	serverURL  string

	state    CallState
	room     media.Room
	username string

	micMuted    bool
	cameraMuted bool
	sharing     bool
}

func NewCallService(
	fetchToken TokenFetcher,
	connector media.Connector,
	picker capture.Picker,
	presence PresenceService,
	renderer view.Renderer,
	serverURL string,
) CallService {
	return &callServiceImpl{
		fetchToken:  fetchToken,
		connector:   connector,
		picker:      picker,
		presence:    presence,
		renderer:    renderer,
		serverURL:   serverURL,
		cameraMuted: true,
	}
}

func (s *callServiceImpl) State() CallState { return s.state }

func (s *callServiceImpl) Join(ctx context.Context, roomName, username string) error {
	if s.state != CallIdle {
		return nil
	}
	s.state = CallConnecting
	s.username = username

	token, err := s.fetchToken(ctx, roomName, username)
	if err != nil {
		log.Error("获取入会令牌失败", "room", roomName, "err", err)
		s.renderer.Warning("Could not join the call. Token service unavailable.")
		s.state = CallIdle
		return errors.Wrap(ErrToken, err.Error())
	}

	room, err := s.connector.Connect(ctx, s.serverURL, token, s)
	if err != nil {
		log.Error("媒体房间连接失败", "room", roomName, "err", err)
		s.renderer.Warning("Could not connect to the call.")
		s.state = CallIdle
		return errors.Wrap(ErrMediaConnect, err.Error())
	}

	s.state = CallConnected
	s.room = room
	// 入会口径：麦克风开启，摄像头关闭，未共享屏幕
	s.micMuted = false
	s.cameraMuted = true
	s.sharing = false

	s.renderer.SetCallState(true)
	s.renderer.AddTile(username, true)
	s.presence.SetInCall(true)
	return nil
}

func (s *callServiceImpl) Leave() {
	if s.state == CallIdle {
		return
	}
	if s.room != nil {
		s.room.Disconnect()
	}
	s.cleanup()
}

// cleanup 回到 idle 并复位媒体口径，下次入会总是同一起点
func (s *callServiceImpl) cleanup() {
	s.state = CallIdle
	s.room = nil
	s.micMuted = false
	s.cameraMuted = true
	s.sharing = false

	s.renderer.ClearTiles()
	s.renderer.SetCallState(false)
	s.presence.SetInCall(false)
}

func (s *callServiceImpl) SetMicMuted(muted bool) {
	if s.room == nil {
		return
	}
	if err := s.room.SetMicMuted(muted); err != nil {
		log.Warn("切换麦克风失败", "err", err)
		return
	}
	s.micMuted = muted
}

func (s *callServiceImpl) SetCameraMuted(muted bool) {
	if s.room == nil {
		return
	}
	if err := s.room.SetCameraMuted(muted); err != nil {
		if errors.Is(err, media.ErrNoCapture) {
			s.renderer.Warning("No camera backend is available on this machine.")
		} else {
			log.Warn("切换摄像头失败", "err", err)
		}
		return
	}
	s.cameraMuted = muted
}

func (s *callServiceImpl) ShareScreen(sourceID string) {
	if s.room == nil || s.sharing {
		return
	}
	if err := s.room.PublishScreen(sourceID); err != nil {
		if errors.Is(err, media.ErrNoCapture) {
			s.renderer.Warning("Screen capture is not available on this machine.")
		} else {
			log.Warn("屏幕共享失败", "err", err)
			s.renderer.Warning("Screen sharing failed.")
		}
		return
	}
	s.sharing = true
	s.renderer.AddTile(s.username+" (Screen)", true)
}

func (s *callServiceImpl) StopShare() {
	if s.room == nil || !s.sharing {
		return
	}
	if err := s.room.StopScreen(); err != nil {
		log.Warn("停止屏幕共享失败", "err", err)
	}
	s.sharing = false
	s.renderer.RemoveTile(s.username + " (Screen)")
}

func (s *callServiceImpl) SwitchDevice(kind, deviceID string) {
	if s.room == nil {
		return
	}
	mediaKind := ""
	switch kind {
	case "audioinput":
		mediaKind = "mic"
	case "videoinput":
		mediaKind = "camera"
	default:
		log.Warn("未知设备类型", "kind", kind)
		return
	}
	if err := s.room.SwitchDevice(mediaKind, deviceID); err != nil {
		log.Warn("切换设备失败", "kind", kind, "err", err)
		s.renderer.Warning("Could not switch device.")
	}
}

func (s *callServiceImpl) ScreenSources() ([]capture.Source, error) {
	sources, err := s.picker.Sources()
	if err != nil {
		log.Warn("枚举屏幕源失败", "err", err)
		return nil, errors.Wrap(UnExpectedError, err.Error())
	}
	return sources, nil
}

// 媒体房间回调，已在应用事件循环上执行

func (s *callServiceImpl) OnTrack(info media.TrackInfo) {
	if s.state != CallConnected {
		return
	}
	s.renderer.AddTile(tileName(info), false)
}

func (s *callServiceImpl) OnTrackEnded(info media.TrackInfo) {
	if s.state != CallConnected {
		return
	}
	s.renderer.RemoveTile(tileName(info))
}

func (s *callServiceImpl) OnDisconnected() {
	if s.state == CallIdle {
		return
	}
	log.Info("媒体房间连接断开")
	s.cleanup()
	s.renderer.SystemNotice("Call ended")
}

func tileName(info media.TrackInfo) string {
	if info.Screen {
		return info.Participant + " (Screen)"
	}
	return info.Participant
}
