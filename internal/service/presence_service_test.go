package service

import (
	"testing"

	"toychat/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePresenceChannel 立即确认订阅并记录 Track 调用
type fakePresenceChannel struct {
	tracked []model.PresenceRecord
	left    bool
}

func (f *fakePresenceChannel) Subscribe(onJoined func(err error)) error {
	onJoined(nil)
	return nil
}

func (f *fakePresenceChannel) Track(record any) error {
	f.tracked = append(f.tracked, record.(model.PresenceRecord))
	return nil
}

func (f *fakePresenceChannel) Leave() { f.left = true }

type presenceHarness struct {
	svc      PresenceService
	renderer *fakeRenderer
	channel  *fakePresenceChannel
	sync     func(model.PresenceSnapshot)
	key      string
}

func newPresenceHarness(t *testing.T) *presenceHarness {
	t.Helper()
	h := &presenceHarness{
		renderer: newFakeRenderer(),
		channel:  &fakePresenceChannel{},
		key:      "general",
	}
	factory := func(key string, onSync func(model.PresenceSnapshot)) PresenceChannel {
		h.sync = onSync
		return h.channel
	}
	post := func(fn func()) { fn() }
	h.svc = NewPresenceService(factory, h.renderer, post, func() string { return h.key })
	require.NoError(t, h.svc.Join("alice"))
	return h
}

func snapshotOf(records ...model.PresenceRecord) model.PresenceSnapshot {
	snap := make(model.PresenceSnapshot)
	for _, r := range records {
		snap[r.Username] = []model.PresenceRecord{r}
	}
	return snap
}

func TestJoinPublishesOwnRecord(t *testing.T) {
	h := newPresenceHarness(t)

	require.Len(t, h.channel.tracked, 1)
	assert.Equal(t, "alice", h.channel.tracked[0].Username)
}

func TestFirstSnapshotSeedsWithoutNotices(t *testing.T) {
	h := newPresenceHarness(t)

	h.sync(snapshotOf(
		model.PresenceRecord{Username: "alice"},
		model.PresenceRecord{Username: "bob"},
	))

	assert.Empty(t, h.renderer.notices)
	assert.Len(t, h.renderer.userList, 2)
}

func TestJoinLeaveNoticesExactlyOnce(t *testing.T) {
	h := newPresenceHarness(t)

	h.sync(snapshotOf(model.PresenceRecord{Username: "alice"}))

	with := snapshotOf(
		model.PresenceRecord{Username: "alice"},
		model.PresenceRecord{Username: "bob"},
	)
	h.sync(with)
	// 相同快照重放不应重复提示
	h.sync(with)

	assert.Equal(t, []string{"bob joined"}, h.renderer.notices)

	h.sync(snapshotOf(model.PresenceRecord{Username: "alice"}))
	assert.Equal(t, []string{"bob joined", "bob left"}, h.renderer.notices)
}

func TestOwnPresenceNeverNoticed(t *testing.T) {
	h := newPresenceHarness(t)

	h.sync(snapshotOf(model.PresenceRecord{Username: "bob"}))
	h.sync(snapshotOf(
		model.PresenceRecord{Username: "bob"},
		model.PresenceRecord{Username: "alice"},
	))

	assert.Empty(t, h.renderer.notices)
}

func TestTypingLineScopedToActiveConversation(t *testing.T) {
	h := newPresenceHarness(t)

	h.sync(snapshotOf(
		model.PresenceRecord{Username: "alice"},
		model.PresenceRecord{Username: "bob", Typing: true, TypingIn: "general"},
	))
	assert.Equal(t, "bob is typing...", h.renderer.typingLine)

	// 其他会话里的输入不展示
	h.sync(snapshotOf(
		model.PresenceRecord{Username: "alice"},
		model.PresenceRecord{Username: "bob", Typing: true, TypingIn: "random"},
	))
	assert.Equal(t, "", h.renderer.typingLine)
}

func TestTypingLineCountsMultipleWriters(t *testing.T) {
	h := newPresenceHarness(t)

	h.sync(snapshotOf(
		model.PresenceRecord{Username: "alice"},
		model.PresenceRecord{Username: "bob", Typing: true, TypingIn: "general"},
		model.PresenceRecord{Username: "carol", Typing: true, TypingIn: "general"},
	))
	assert.Equal(t, "2 people are typing...", h.renderer.typingLine)
}

func TestSetTypingPublishesScopedRecord(t *testing.T) {
	h := newPresenceHarness(t)

	h.svc.SetTyping(true, "general")
	last := h.channel.tracked[len(h.channel.tracked)-1]
	assert.True(t, last.Typing)
	assert.Equal(t, "general", last.TypingIn)

	h.svc.SetTyping(false, "general")
	last = h.channel.tracked[len(h.channel.tracked)-1]
	assert.False(t, last.Typing)
	assert.Equal(t, "", last.TypingIn)
}

func TestInCallFlagPropagatesToUserList(t *testing.T) {
	h := newPresenceHarness(t)

	h.svc.SetInCall(true)
	last := h.channel.tracked[len(h.channel.tracked)-1]
	assert.True(t, last.InCall)

	h.sync(snapshotOf(
		model.PresenceRecord{Username: "alice", InCall: true},
		model.PresenceRecord{Username: "bob"},
	))
	require.Len(t, h.renderer.userList, 2)
	assert.True(t, h.renderer.userList[0].InCall) // alice 字典序在前
	assert.False(t, h.renderer.userList[1].InCall)
}

func TestLeaveClearsPresenceState(t *testing.T) {
	h := newPresenceHarness(t)

	h.sync(snapshotOf(model.PresenceRecord{Username: "bob"}))
	h.svc.Leave()

	assert.True(t, h.channel.left)
	assert.Empty(t, h.renderer.userList)
	assert.False(t, h.svc.Online("bob"))
}
