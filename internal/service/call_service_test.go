package service

import (
	"context"
	"testing"

	"toychat/internal/pkg/capture"
	"toychat/internal/pkg/media"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMediaRoom 记录媒体操作
type fakeMediaRoom struct {
	micMuted     bool
	cameraMuted  bool
	screenShared bool
	disconnected bool
	screenErr    error
}

func (f *fakeMediaRoom) SetMicMuted(muted bool) error    { f.micMuted = muted; return nil }
func (f *fakeMediaRoom) SetCameraMuted(muted bool) error { f.cameraMuted = muted; return nil }

func (f *fakeMediaRoom) PublishScreen(string) error {
	if f.screenErr != nil {
		return f.screenErr
	}
	f.screenShared = true
	return nil
}

func (f *fakeMediaRoom) StopScreen() error             { f.screenShared = false; return nil }
func (f *fakeMediaRoom) SwitchDevice(_, _ string) error { return nil }
func (f *fakeMediaRoom) Disconnect()                   { f.disconnected = true }

// fakeConnector 返回预置房间或错误
type fakeConnector struct {
	room       *fakeMediaRoom
	connectErr error
	handler    media.Handler
}

func (f *fakeConnector) Connect(_ context.Context, _, _ string, h media.Handler) (media.Room, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.handler = h
	return f.room, nil
}

type fakePicker struct{}

func (fakePicker) Sources() ([]capture.Source, error) {
	return []capture.Source{{ID: "screen:0", Name: "Screen 1"}}, nil
}

type nullPresence struct{ inCall bool }

func (n *nullPresence) Join(string) error        { return nil }
func (n *nullPresence) Leave()                   {}
func (n *nullPresence) SetTyping(bool, string)   {}
func (n *nullPresence) SetInCall(inCall bool)    { n.inCall = inCall }
func (n *nullPresence) Refresh()                 {}
func (n *nullPresence) Online(string) bool       { return false }

type callHarness struct {
	svc       CallService
	renderer  *fakeRenderer
	connector *fakeConnector
	presence  *nullPresence
	tokenErr  error
}

func newCallHarness(t *testing.T) *callHarness {
	t.Helper()
	h := &callHarness{
		renderer:  newFakeRenderer(),
		connector: &fakeConnector{room: &fakeMediaRoom{cameraMuted: true}},
		presence:  &nullPresence{},
	}
	fetch := func(_ context.Context, _, _ string) (string, error) {
		if h.tokenErr != nil {
			return "", h.tokenErr
		}
		return "jwt", nil
	}
	h.svc = NewCallService(fetch, h.connector, fakePicker{}, h.presence, h.renderer, "wss://sfu.local")
	return h
}

func TestJoinHappyPath(t *testing.T) {
	h := newCallHarness(t)

	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))

	assert.Equal(t, CallConnected, h.svc.State())
	assert.True(t, h.renderer.callState)
	assert.Contains(t, h.renderer.tiles, "alice")
	assert.True(t, h.presence.inCall)
}

func TestJoinIsIdempotentWhileConnected(t *testing.T) {
	h := newCallHarness(t)

	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))
	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))

	assert.Len(t, h.renderer.tiles, 1)
}

func TestJoinTokenFailureReturnsToIdle(t *testing.T) {
	h := newCallHarness(t)
	h.tokenErr = errors.New("function unreachable")

	err := h.svc.Join(context.Background(), "general", "alice")

	assert.ErrorIs(t, err, ErrToken)
	assert.Equal(t, CallIdle, h.svc.State())
	assert.NotEmpty(t, h.renderer.warnings)
	assert.False(t, h.renderer.callState)
}

func TestJoinConnectFailureReturnsToIdle(t *testing.T) {
	h := newCallHarness(t)
	h.connector.connectErr = errors.New("sfu down")

	err := h.svc.Join(context.Background(), "general", "alice")

	assert.ErrorIs(t, err, ErrMediaConnect)
	assert.Equal(t, CallIdle, h.svc.State())
}

func TestLeaveResetsMediaFlags(t *testing.T) {
	h := newCallHarness(t)

	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))
	h.svc.SetMicMuted(true)
	h.svc.ShareScreen("screen:0")
	h.svc.Leave()

	assert.True(t, h.connector.room.disconnected)
	assert.Equal(t, CallIdle, h.svc.State())
	assert.Empty(t, h.renderer.tiles)
	assert.False(t, h.renderer.callState)
	assert.False(t, h.presence.inCall)

	// 重新入会回到固定口径：开麦、关摄像头、未共享
	h.connector.room = &fakeMediaRoom{cameraMuted: true}
	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))
	h.svc.ShareScreen("screen:0")
	assert.Contains(t, h.renderer.tiles, "alice (Screen)")
}

func TestLeaveWhenIdleIsNoop(t *testing.T) {
	h := newCallHarness(t)

	h.svc.Leave()
	h.svc.Leave()

	assert.Equal(t, CallIdle, h.svc.State())
	assert.Empty(t, h.renderer.warnings)
}

func TestRemoteScreenTrackGetsSuffixedTile(t *testing.T) {
	h := newCallHarness(t)
	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))

	h.connector.handler.OnTrack(media.TrackInfo{Participant: "bob", Screen: false})
	h.connector.handler.OnTrack(media.TrackInfo{Participant: "bob", Screen: true})

	assert.Contains(t, h.renderer.tiles, "bob")
	assert.Contains(t, h.renderer.tiles, "bob (Screen)")

	h.connector.handler.OnTrackEnded(media.TrackInfo{Participant: "bob", Screen: true})
	assert.NotContains(t, h.renderer.tiles, "bob (Screen)")
	assert.Contains(t, h.renderer.tiles, "bob")
}

func TestRemoteDisconnectCleansUp(t *testing.T) {
	h := newCallHarness(t)
	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))

	h.connector.handler.OnDisconnected()

	assert.Equal(t, CallIdle, h.svc.State())
	assert.Empty(t, h.renderer.tiles)
	assert.Contains(t, h.renderer.notices, "Call ended")
}

func TestShareScreenDegradesWithoutCaptureBackend(t *testing.T) {
	h := newCallHarness(t)
	h.connector.room.screenErr = media.ErrNoCapture
	require.NoError(t, h.svc.Join(context.Background(), "general", "alice"))

	h.svc.ShareScreen("screen:0")

	assert.NotContains(t, h.renderer.tiles, "alice (Screen)")
	assert.NotEmpty(t, h.renderer.warnings)
	// 失败不影响通话本身
	assert.Equal(t, CallConnected, h.svc.State())
}
