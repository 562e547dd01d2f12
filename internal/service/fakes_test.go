package service

import (
	"context"
	"sync"

	"toychat/internal/model"
	"toychat/internal/view"
)

// fakeRenderer 记录渲染调用并维护已渲染集合
type fakeRenderer struct {
	mu sync.Mutex

	rendered map[string]struct{}
	messages []*model.Message
	removed  []string
	cleared  int

	notices  []string
	warnings []string
	composer []string

	userList   []view.UserEntry
	typingLine string
	unread     map[string]uint64
	rooms      []string
	peers      []string
	pinned     []string

	convKey   string
	convDM    bool
	convTitle string

	tiles     map[string]bool
	callState bool

	loginShown bool
	chatUser   string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		rendered: make(map[string]struct{}),
		unread:   make(map[string]uint64),
		tiles:    make(map[string]bool),
	}
}

func (r *fakeRenderer) ShowLogin()               { r.loginShown = true }
func (r *fakeRenderer) ShowChat(username string) { r.chatUser = username }

func (r *fakeRenderer) RenderMessage(m *model.Message, own bool) {
	r.rendered[m.ID] = struct{}{}
	r.messages = append(r.messages, m)
}

func (r *fakeRenderer) HasMessage(id string) bool {
	_, ok := r.rendered[id]
	return ok
}

func (r *fakeRenderer) UpdateMessage(m *model.Message) {}

func (r *fakeRenderer) RemoveMessage(id string) {
	delete(r.rendered, id)
	r.removed = append(r.removed, id)
}

func (r *fakeRenderer) ClearMessages() {
	r.rendered = make(map[string]struct{})
	r.messages = nil
	r.cleared++
}

func (r *fakeRenderer) SystemNotice(text string)    { r.notices = append(r.notices, text) }
func (r *fakeRenderer) Warning(text string)         { r.warnings = append(r.warnings, text) }
func (r *fakeRenderer) RestoreComposer(text string) { r.composer = append(r.composer, text) }

func (r *fakeRenderer) SetUserList(entries []view.UserEntry) { r.userList = entries }
func (r *fakeRenderer) SetTypingLine(text string)            { r.typingLine = text }

func (r *fakeRenderer) SetUnread(convKey string, count uint64) { r.unread[convKey] = count }
func (r *fakeRenderer) SetRooms(rooms []string)                { r.rooms = rooms }
func (r *fakeRenderer) SetPeers(peers []string)                { r.peers = peers }
func (r *fakeRenderer) SetPinned(ids []string)                 { r.pinned = ids }

func (r *fakeRenderer) SetConversation(key string, dm bool, title string) {
	r.convKey = key
	r.convDM = dm
	r.convTitle = title
}

func (r *fakeRenderer) AddTile(name string, local bool) { r.tiles[name] = local }
func (r *fakeRenderer) RemoveTile(name string)          { delete(r.tiles, name) }
func (r *fakeRenderer) ClearTiles()                     { r.tiles = make(map[string]bool) }
func (r *fakeRenderer) SetCallState(connected bool)     { r.callState = connected }

func (r *fakeRenderer) renderedIDs() []string {
	ids := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// fakeMessageRepo 内存消息表
type fakeMessageRepo struct {
	rows      map[string][]*model.Message
	insertErr error
	inserted  []*model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{rows: make(map[string][]*model.Message)}
}

func (f *fakeMessageRepo) Insert(_ context.Context, m *model.Message) (*model.Message, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.rows[m.Room] = append(f.rows[m.Room], m)
	f.inserted = append(f.inserted, m)
	return m, nil
}

func (f *fakeMessageRepo) Backlog(_ context.Context, convKey string, limit int) ([]*model.Message, error) {
	rows := f.rows[convKey]
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

func (f *fakeMessageRepo) UpdateContent(_ context.Context, id, username, content string) (*model.Message, error) {
	for _, rows := range f.rows {
		for _, m := range rows {
			if m.ID == id && m.Username == username {
				m.Content = content
				return m, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) Delete(_ context.Context, id, username string) error {
	for key, rows := range f.rows {
		kept := rows[:0]
		for _, m := range rows {
			if m.ID != id || m.Username != username {
				kept = append(kept, m)
			}
		}
		f.rows[key] = kept
	}
	return nil
}

// fakeLocalStore 内存设备存储
type fakeLocalStore struct {
	pending  map[string]string
	sessions map[string]string
	lastAcct string
	pins     map[string][]string // convKey -> ids
	peers    []string
	unread   map[string]uint64
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{
		pending:  make(map[string]string),
		sessions: make(map[string]string),
		pins:     make(map[string][]string),
		unread:   make(map[string]uint64),
	}
}

func (f *fakeLocalStore) SavePendingUsername(_ context.Context, email, username string) error {
	f.pending[email] = username
	return nil
}

func (f *fakeLocalStore) PendingUsername(_ context.Context, email string) (string, error) {
	return f.pending[email], nil
}

func (f *fakeLocalStore) ClearPendingUsername(_ context.Context, email string) error {
	delete(f.pending, email)
	return nil
}

func (f *fakeLocalStore) SaveSession(_ context.Context, accountID, refreshToken string) error {
	f.sessions[accountID] = refreshToken
	f.lastAcct = accountID
	return nil
}

func (f *fakeLocalStore) LastSession(_ context.Context) (string, string, error) {
	if f.lastAcct == "" {
		return "", "", nil
	}
	return f.lastAcct, f.sessions[f.lastAcct], nil
}

func (f *fakeLocalStore) ClearSession(_ context.Context, accountID string) error {
	delete(f.sessions, accountID)
	if f.lastAcct == accountID {
		f.lastAcct = ""
	}
	return nil
}

func (f *fakeLocalStore) Pin(_ context.Context, _, convKey, messageID string) error {
	f.pins[convKey] = append(f.pins[convKey], messageID)
	return nil
}

func (f *fakeLocalStore) Unpin(_ context.Context, _, messageID string) error {
	for key, ids := range f.pins {
		kept := ids[:0]
		for _, id := range ids {
			if id != messageID {
				kept = append(kept, id)
			}
		}
		f.pins[key] = kept
	}
	return nil
}

func (f *fakeLocalStore) PinnedIDs(_ context.Context, _, convKey string) ([]string, error) {
	return f.pins[convKey], nil
}

func (f *fakeLocalStore) AddPeer(_ context.Context, _, peer string) error {
	f.peers = append(f.peers, peer)
	return nil
}

func (f *fakeLocalStore) Peers(_ context.Context, _ string) ([]string, error) {
	return f.peers, nil
}

func (f *fakeLocalStore) SetUnread(_ context.Context, _, convKey string, count uint64) error {
	f.unread[convKey] = count
	return nil
}

func (f *fakeLocalStore) Unread(_ context.Context, _ string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(f.unread))
	for k, v := range f.unread {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLocalStore) CompactUnread(_ context.Context) error {
	for k, v := range f.unread {
		if v == 0 {
			delete(f.unread, k)
		}
	}
	return nil
}
