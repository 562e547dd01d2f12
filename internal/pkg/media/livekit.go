package media

import (
	"context"
	log "log/slog"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
)

// lkConnector 基于 LiveKit SFU 的 Connector 实现。
// 所有 SDK 回调先经 post 串行化到应用事件循环再触达 Handler。
type lkConnector struct {
	post     func(func())
	provider TrackProvider
}

func NewLiveKitConnector(post func(func()), provider TrackProvider) Connector {
	return &lkConnector{post: post, provider: provider}
}

func (c *lkConnector) Connect(ctx context.Context, url, token string, h Handler) (Room, error) {
	r := &lkRoom{connector: c, handler: h}

	cb := &lksdk.RoomCallback{
		OnDisconnected: func() {
			c.post(h.OnDisconnected)
		},
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(_ *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				info := TrackInfo{
					Participant: rp.Identity(),
					Screen:      pub.Source() == livekit.TrackSource_SCREEN_SHARE,
				}
				c.post(func() { h.OnTrack(info) })
			},
			OnTrackUnsubscribed: func(_ *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				info := TrackInfo{
					Participant: rp.Identity(),
					Screen:      pub.Source() == livekit.TrackSource_SCREEN_SHARE,
				}
				c.post(func() { h.OnTrackEnded(info) })
			},
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(url, token, cb)
	if err != nil {
		return nil, errors.Wrap(err, "连接媒体房间失败")
	}
	r.room = room

	// 入房即开麦，摄像头默认关闭
	if track, err := c.provider.MicTrack(""); err == nil {
		if _, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Source: livekit.TrackSource_MICROPHONE,
		}); err != nil {
			log.Warn("发布麦克风轨道失败", "err", err)
		}
	} else if !errors.Is(err, ErrNoCapture) {
		log.Warn("打开麦克风失败", "err", err)
	}

	return r, nil
}

type lkRoom struct {
	connector *lkConnector
	handler   Handler
	room      *lksdk.Room
	screenPub *lksdk.LocalTrackPublication
	cameraPub *lksdk.LocalTrackPublication
}

func (r *lkRoom) setMuted(source livekit.TrackSource, muted bool) error {
	for _, pub := range r.room.LocalParticipant.TrackPublications() {
		local, ok := pub.(*lksdk.LocalTrackPublication)
		if !ok || local.Source() != source {
			continue
		}
		local.SetMuted(muted)
		return nil
	}
	return errors.Errorf("未找到本地轨道: %s", source)
}

func (r *lkRoom) SetMicMuted(muted bool) error {
	return r.setMuted(livekit.TrackSource_MICROPHONE, muted)
}

func (r *lkRoom) SetCameraMuted(muted bool) error {
	// 摄像头按需发布，首次解除静音时才建轨
	if !muted && r.cameraPub == nil {
		track, err := r.connector.provider.CameraTrack("")
		if err != nil {
			return err
		}
		pub, err := r.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Source: livekit.TrackSource_CAMERA,
		})
		if err != nil {
			return errors.Wrap(err, "发布摄像头轨道失败")
		}
		r.cameraPub = pub
		return nil
	}
	return r.setMuted(livekit.TrackSource_CAMERA, muted)
}

func (r *lkRoom) PublishScreen(sourceID string) error {
	if r.screenPub != nil {
		return nil
	}
	track, err := r.connector.provider.ScreenTrack(sourceID)
	if err != nil {
		return err
	}
	pub, err := r.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Source: livekit.TrackSource_SCREEN_SHARE,
	})
	if err != nil {
		return errors.Wrap(err, "发布屏幕轨道失败")
	}
	r.screenPub = pub
	return nil
}

func (r *lkRoom) StopScreen() error {
	if r.screenPub == nil {
		return nil
	}
	err := r.room.LocalParticipant.UnpublishTrack(r.screenPub.SID())
	r.screenPub = nil
	return errors.Wrap(err, "撤销屏幕轨道失败")
}

func (r *lkRoom) SwitchDevice(kind, deviceID string) error {
	var (
		source livekit.TrackSource
		track  webrtc.TrackLocal
		err    error
	)
	switch kind {
	case "mic":
		source = livekit.TrackSource_MICROPHONE
		track, err = r.connector.provider.MicTrack(deviceID)
	case "camera":
		source = livekit.TrackSource_CAMERA
		track, err = r.connector.provider.CameraTrack(deviceID)
	default:
		return errors.Errorf("未知设备类型: %s", kind)
	}
	if err != nil {
		return err
	}

	for _, pub := range r.room.LocalParticipant.TrackPublications() {
		local, ok := pub.(*lksdk.LocalTrackPublication)
		if !ok || local.Source() != source {
			continue
		}
		if err := r.room.LocalParticipant.UnpublishTrack(local.SID()); err != nil {
			return errors.Wrap(err, "撤销旧设备轨道失败")
		}
		break
	}

	newPub, err := r.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{Source: source})
	if err != nil {
		return errors.Wrap(err, "发布新设备轨道失败")
	}
	if source == livekit.TrackSource_CAMERA {
		r.cameraPub = newPub
	}
	return nil
}

func (r *lkRoom) Disconnect() {
	r.room.Disconnect()
}
