package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, ConversationKey("alice", "bob"), ConversationKey("bob", "alice"))
	assert.Equal(t, "alice_bob", ConversationKey("bob", "alice"))
	assert.Equal(t, "alice_bob", ConversationKey("alice", "bob"))
}

func TestIsPairKey(t *testing.T) {
	key := ConversationKey("alice", "bob")

	assert.True(t, IsPairKey(key, "alice"))
	assert.True(t, IsPairKey(key, "bob"))
	assert.False(t, IsPairKey(key, "carol"))
	assert.False(t, IsPairKey("general", "alice"))
}

func TestPairPeer(t *testing.T) {
	key := ConversationKey("alice", "bob")

	assert.Equal(t, "bob", PairPeer(key, "alice"))
	assert.Equal(t, "alice", PairPeer(key, "bob"))
	assert.Equal(t, "", PairPeer(key, "carol"))
}

func TestMessageKindFixedAtConstruction(t *testing.T) {
	text := NewTextMessage("general", "alice", "https://example.com/a.png")
	image := NewImageMessage("general", "alice", "https://example.com/a.png")

	// 类型由构造函数决定，正文内容不参与判定
	assert.Equal(t, KindText, text.Kind)
	assert.Equal(t, KindImage, image.Kind)
	assert.NotEmpty(t, text.ID)
	assert.NotEqual(t, text.ID, image.ID)
}

func TestEdited(t *testing.T) {
	m := NewTextMessage("general", "alice", "hi")
	assert.False(t, m.Edited())

	now := m.CreatedAt
	m.EditedAt = &now
	assert.True(t, m.Edited())
}
