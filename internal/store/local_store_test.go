package store

import (
	"context"
	"path/filepath"
	"testing"

	"toychat/internal/api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreForTest(t *testing.T) LocalStore {
	t.Helper()
	db, err := NewGormDB(&config.StoreConfig{
		Path: filepath.Join(t.TempDir(), "toychat.db"),
	})
	require.NoError(t, err)
	return NewLocalStore(db)
}

func TestPendingUsernameRoundTrip(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	name, err := s.PendingUsername(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, s.SavePendingUsername(ctx, "alice@example.com", "alice"))
	// 覆盖写入取后值
	require.NoError(t, s.SavePendingUsername(ctx, "alice@example.com", "alice2"))

	name, err = s.PendingUsername(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice2", name)

	require.NoError(t, s.ClearPendingUsername(ctx, "alice@example.com"))
	name, err = s.PendingUsername(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestSessionLifecycle(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	accountID, token, err := s.LastSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, accountID)
	assert.Empty(t, token)

	require.NoError(t, s.SaveSession(ctx, "acct-1", "rt-1"))
	require.NoError(t, s.SaveSession(ctx, "acct-1", "rt-2"))

	accountID, token, err = s.LastSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", accountID)
	assert.Equal(t, "rt-2", token)

	require.NoError(t, s.ClearSession(ctx, "acct-1"))
	accountID, _, err = s.LastSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, accountID)
}

func TestPinsScopedByConversation(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	require.NoError(t, s.Pin(ctx, "acct-1", "general", "m1"))
	require.NoError(t, s.Pin(ctx, "acct-1", "general", "m2"))
	require.NoError(t, s.Pin(ctx, "acct-1", "random", "m3"))
	// 重复置顶幂等
	require.NoError(t, s.Pin(ctx, "acct-1", "general", "m1"))

	ids, err := s.PinnedIDs(ctx, "acct-1", "general")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)

	require.NoError(t, s.Unpin(ctx, "acct-1", "m1"))
	ids, err = s.PinnedIDs(ctx, "acct-1", "general")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, ids)
}

func TestPeersAppendOnce(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	require.NoError(t, s.AddPeer(ctx, "acct-1", "bob"))
	require.NoError(t, s.AddPeer(ctx, "acct-1", "carol"))
	require.NoError(t, s.AddPeer(ctx, "acct-1", "bob"))

	peers, err := s.Peers(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, peers)
}

func TestUnreadUpsertAndCompact(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	require.NoError(t, s.SetUnread(ctx, "acct-1", "general", 3))
	require.NoError(t, s.SetUnread(ctx, "acct-1", "general", 5))
	require.NoError(t, s.SetUnread(ctx, "acct-1", "random", 0))

	counts, err := s.Unread(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), counts["general"])

	require.NoError(t, s.CompactUnread(ctx))
	counts, err = s.Unread(ctx, "acct-1")
	require.NoError(t, err)
	assert.NotContains(t, counts, "random")
	assert.Contains(t, counts, "general")
}
