package media

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
)

// TrackInfo 一条远端媒体轨道的展示信息
type TrackInfo struct {
	Participant string
	Screen      bool
}

// Handler 接收媒体房间回调。实现方保证回调已被投递到应用事件循环。
type Handler interface {
	OnTrack(info TrackInfo)
	OnTrackEnded(info TrackInfo)
	OnDisconnected()
}

// Room 已连接的媒体房间
type Room interface {
	SetMicMuted(muted bool) error
	SetCameraMuted(muted bool) error
	PublishScreen(sourceID string) error
	StopScreen() error
	SwitchDevice(kind, deviceID string) error
	Disconnect()
}

// Connector 建立媒体房间连接
type Connector interface {
	Connect(ctx context.Context, url, token string, h Handler) (Room, error)
}

// TrackProvider 提供本机采集轨道。桌面采集依赖平台后端，
// 未配置时由 nullProvider 兜底，呼叫流程照常进行。
type TrackProvider interface {
	MicTrack(deviceID string) (webrtc.TrackLocal, error)
	CameraTrack(deviceID string) (webrtc.TrackLocal, error)
	ScreenTrack(sourceID string) (webrtc.TrackLocal, error)
}

var ErrNoCapture = errors.New("本机未配置媒体采集后端")

type nullProvider struct{}

// NewNullProvider 返回不产生任何轨道的占位实现
func NewNullProvider() TrackProvider {
	return nullProvider{}
}

func (nullProvider) MicTrack(string) (webrtc.TrackLocal, error)    { return nil, ErrNoCapture }
func (nullProvider) CameraTrack(string) (webrtc.TrackLocal, error) { return nil, ErrNoCapture }
func (nullProvider) ScreenTrack(string) (webrtc.TrackLocal, error) { return nil, ErrNoCapture }
