package view

import (
	"testing"

	"toychat/internal/api/dto"
	"toychat/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	event   string
	payload any
}

type fakeSink struct {
	events []recordedEvent
}

func (s *fakeSink) Emit(event string, payload any) {
	s.events = append(s.events, recordedEvent{event: event, payload: payload})
}

func (s *fakeSink) count(event string) int {
	n := 0
	for _, e := range s.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func TestRenderMessageMarksAsRendered(t *testing.T) {
	sink := &fakeSink{}
	r := NewBridgeRenderer(sink)

	m := model.NewTextMessage("general", "alice", "hi")
	assert.False(t, r.HasMessage(m.ID))

	r.RenderMessage(m, true)
	assert.True(t, r.HasMessage(m.ID))
	assert.Equal(t, 1, sink.count(EvMessage))

	payload, ok := sink.events[0].payload.(dto.MessageDTO)
	require.True(t, ok)
	assert.Equal(t, m.ID, payload.ID)
	assert.True(t, payload.Own)
}

func TestClearMessagesForgetsRenderedSet(t *testing.T) {
	sink := &fakeSink{}
	r := NewBridgeRenderer(sink)

	m := model.NewTextMessage("general", "alice", "hi")
	r.RenderMessage(m, false)
	r.ClearMessages()

	assert.False(t, r.HasMessage(m.ID))
	assert.Equal(t, 1, sink.count(EvMessagesCleared))
}

func TestRemoveMessageForgetsID(t *testing.T) {
	sink := &fakeSink{}
	r := NewBridgeRenderer(sink)

	m := model.NewTextMessage("general", "alice", "hi")
	r.RenderMessage(m, false)
	r.RemoveMessage(m.ID)

	assert.False(t, r.HasMessage(m.ID))
	assert.Equal(t, 1, sink.count(EvMessageRemoved))
}

func TestUpdateMessageOnlyForRenderedIDs(t *testing.T) {
	sink := &fakeSink{}
	r := NewBridgeRenderer(sink)

	m := model.NewTextMessage("general", "alice", "hi")
	r.UpdateMessage(m)
	assert.Equal(t, 0, sink.count(EvMessageUpdated))

	r.RenderMessage(m, false)
	r.UpdateMessage(m)
	assert.Equal(t, 1, sink.count(EvMessageUpdated))
}

func TestSetUserListConvertsEntries(t *testing.T) {
	sink := &fakeSink{}
	r := NewBridgeRenderer(sink)

	r.SetUserList([]UserEntry{
		{Username: "alice", InCall: true},
		{Username: "bob"},
	})

	require.Equal(t, 1, sink.count(EvUserList))
	list, ok := sink.events[0].payload.([]dto.UserEntryDTO)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.True(t, list[0].InCall)
}
