// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package dispatch_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gridkeeper/gridkeeper/internal/dispatch"
	"github.com/gridkeeper/gridkeeper/internal/gateway"
	"github.com/gridkeeper/gridkeeper/internal/guard"
	"github.com/gridkeeper/gridkeeper/internal/store"
	"github.com/gridkeeper/gridkeeper/internal/store/sqlite"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/types"
	"github.com/stretchr/testify/require"
)

const (
	ownerID = 1
	adminID = 10
	userID  = 20
	botID   = -300
)

type sentMessage struct {
	PeerID int64
	Text   string
}

type removal struct {
	ChatID int64
	UserID int64
}

// mockGateway records every call. Members are keyed by peer id.
type mockGateway struct {
	mu         sync.Mutex
	sent       []sentMessage
	deleted    map[int64][]int64
	removals   []removal
	members    map[int64][]gateway.Member
	removeErrs map[int64]error // keyed by chat id
	membersErr error
	deleteErr  error
	sendErr    error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		deleted:    map[int64][]int64{},
		members:    map[int64][]gateway.Member{},
		removeErrs: map[int64]error{},
	}
}

func (m *mockGateway) SendMessage(_ context.Context, peerID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{PeerID: peerID, Text: text})
	return m.sendErr
}

func (m *mockGateway) DeleteMessages(_ context.Context, peerID int64, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[peerID] = append(m.deleted[peerID], ids...)
	return m.deleteErr
}

func (m *mockGateway) RemoveMember(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removals = append(m.removals, removal{ChatID: chatID, UserID: userID})
	return m.removeErrs[chatID]
}

func (m *mockGateway) GetConversationMembers(_ context.Context, peerID int64) ([]gateway.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.membersErr != nil {
		return nil, m.membersErr
	}
	return m.members[peerID], nil
}

func (m *mockGateway) setAdmins(chatID int64, ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var members []gateway.Member
	for _, id := range ids {
		members = append(members, gateway.Member{MemberID: id, IsAdmin: true})
	}
	members = append(members, gateway.Member{MemberID: userID})
	m.members[types.PeerFromChatID(chatID)] = members
}

func (m *mockGateway) lastReply(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "expected a reply")
	return m.sent[len(m.sent)-1].Text
}

func (m *mockGateway) removedChats(userID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var chats []int64
	for _, r := range m.removals {
		if r.UserID == userID {
			chats = append(chats, r.ChatID)
		}
	}
	return chats
}

type fixture struct {
	d     *dispatch.Dispatcher
	gw    *mockGateway
	store store.ModerationStore
}

func newFixture(t *testing.T, botID int64) *fixture {
	t.Helper()
	ms, err := sqlite.NewModerationStore(filepath.Join(t.TempDir(), "bot.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ms.Close() })

	gw := newMockGateway()
	g := guard.New(ownerID, gw)
	return &fixture{
		d:     dispatch.New(dispatch.Config{BotID: botID}, ms, g, gw, nil),
		gw:    gw,
		store: ms,
	}
}

func (f *fixture) addChats(t *testing.T, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := f.store.Chats().Add(context.Background(), id)
		require.NoError(t, err)
	}
}

func (f *fixture) chats(t *testing.T) []int64 {
	t.Helper()
	ids, err := f.store.Chats().List(context.Background())
	require.NoError(t, err)
	return ids
}

func (f *fixture) banned(t *testing.T, id int64) bool {
	t.Helper()
	ok, err := f.store.Bans().IsBanned(context.Background(), id)
	require.NoError(t, err)
	return ok
}

func (f *fixture) handle(t *testing.T, ev types.Event) {
	t.Helper()
	require.NoError(t, f.d.Handle(context.Background(), ev))
}

func chatMessage(chatID, from int64, text string) types.Event {
	return types.Event{PeerID: types.PeerFromChatID(chatID), FromID: from, Text: text, ConversationMessageID: 55}
}

// failingStore fails every operation with a database error.
type failingStore struct{}

var errDatabase = gkerr.New(gkerr.CodeStoreDatabaseFailure, "disk I/O error")

func (failingStore) Chats() store.ChatStore       { return failingChats{} }
func (failingStore) Bans() store.BanStore         { return failingBans{} }
func (failingStore) Settings() store.SettingStore { return failingSettings{} }
func (failingStore) AuditLog() store.AuditStore   { return failingAudit{} }
func (failingStore) Close() error                 { return nil }

type failingChats struct{}

func (failingChats) Add(context.Context, int64) (bool, error)    { return false, errDatabase }
func (failingChats) Remove(context.Context, int64) (bool, error) { return false, errDatabase }
func (failingChats) Has(context.Context, int64) (bool, error)    { return false, errDatabase }
func (failingChats) List(context.Context) ([]int64, error)       { return nil, errDatabase }
func (failingChats) Count(context.Context) (int, error)          { return 0, errDatabase }

type failingBans struct{}

func (failingBans) Add(context.Context, int64) (bool, error)      { return false, errDatabase }
func (failingBans) Remove(context.Context, int64) (bool, error)   { return false, errDatabase }
func (failingBans) IsBanned(context.Context, int64) (bool, error) { return false, errDatabase }
func (failingBans) List(context.Context) ([]int64, error)         { return nil, errDatabase }
func (failingBans) Count(context.Context) (int, error)            { return 0, errDatabase }

type failingSettings struct{}

func (failingSettings) SetSilence(context.Context, int64, bool) error   { return errDatabase }
func (failingSettings) GetSilence(context.Context, int64) (bool, error) { return false, errDatabase }

type failingAudit struct{}

func (failingAudit) Append(context.Context, *store.AuditEntry) error { return errDatabase }
func (failingAudit) Query(context.Context, store.AuditFilter) ([]*store.AuditEntry, error) {
	return nil, errDatabase
}
