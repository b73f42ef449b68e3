// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package vk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gridkeeper/gridkeeper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pollCall struct {
	key string
	ts  string
}

// pollFixture serves groups.getLongPollServer under /method and a scripted
// a_check endpoint under /poll. Once the script runs out, polls block until
// the client goes away.
type pollFixture struct {
	mu         sync.Mutex
	keys       []string
	serverHits int
	script     []any
	polls      []pollCall
}

func (f *pollFixture) start(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/method/groups.getLongPollServer":
			f.mu.Lock()
			key := f.keys[min(f.serverHits, len(f.keys)-1)]
			f.serverHits++
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{"response": map[string]any{
				"key": key, "server": srv.URL + "/poll", "ts": 1,
			}})
		case "/poll":
			f.mu.Lock()
			f.polls = append(f.polls, pollCall{key: r.URL.Query().Get("key"), ts: r.URL.Query().Get("ts")})
			var next any
			if len(f.script) > 0 {
				next, f.script = f.script[0], f.script[1:]
			}
			f.mu.Unlock()
			if next == nil {
				<-r.Context().Done()
				return
			}
			_ = json.NewEncoder(w).Encode(next)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *pollFixture) snapshot() ([]pollCall, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pollCall(nil), f.polls...), f.serverHits
}

func messageUpdate(peerID, fromID int64, text string) map[string]any {
	return map[string]any{
		"type": "message_new",
		"object": map[string]any{"message": map[string]any{
			"peer_id": peerID, "from_id": fromID, "text": text, "conversation_message_id": 9,
		}},
	}
}

func newTestLongPoll(t *testing.T, srv *httptest.Server) *LongPoll {
	t.Helper()
	c, err := NewClient(Config{Token: "tok", APIURL: srv.URL + "/method", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return NewLongPoll(c, 77, WithWait(1), WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
}

func receive(t *testing.T, events <-chan types.Event) types.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return types.Event{}
	}
}

func TestListen_DeliversMessagesAndHandlesFailures(t *testing.T) {
	f := &pollFixture{
		keys: []string{"k1", "k2"},
		script: []any{
			map[string]any{"ts": "2", "updates": []any{
				messageUpdate(2000000001, 10, "/help"),
				map[string]any{"type": "message_typing_state", "object": map[string]any{}},
			}},
			map[string]any{"failed": 2},
			map[string]any{"failed": 1, "ts": "5"},
			map[string]any{"ts": 6, "updates": []any{messageUpdate(2000000002, 11, "hi")}},
		},
	}
	srv := f.start(t)
	lp := newTestLongPoll(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan types.Event, 4)
	done := make(chan error, 1)
	go func() { done <- lp.Listen(ctx, events) }()

	first := receive(t, events)
	assert.Equal(t, int64(2000000001), first.PeerID)
	assert.Equal(t, int64(10), first.FromID)
	assert.Equal(t, "/help", first.Text)
	assert.Equal(t, int64(9), first.ConversationMessageID)

	second := receive(t, events)
	assert.Equal(t, int64(2000000002), second.PeerID)
	assert.Equal(t, "hi", second.Text)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}

	polls, serverHits := f.snapshot()
	require.GreaterOrEqual(t, len(polls), 4)
	assert.Equal(t, pollCall{key: "k1", ts: "1"}, polls[0])
	assert.Equal(t, pollCall{key: "k1", ts: "2"}, polls[1])
	// failed=2 refreshes the key but keeps ts.
	assert.Equal(t, pollCall{key: "k2", ts: "2"}, polls[2])
	// failed=1 adopts the new ts.
	assert.Equal(t, pollCall{key: "k2", ts: "5"}, polls[3])
	assert.Equal(t, 2, serverHits)
}

func TestListen_FullRefreshOnFailed3(t *testing.T) {
	f := &pollFixture{
		keys:   []string{"k1", "k2"},
		script: []any{map[string]any{"failed": 3}},
	}
	srv := f.start(t)
	lp := newTestLongPoll(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- lp.Listen(ctx, make(chan types.Event)) }()

	require.Eventually(t, func() bool {
		polls, _ := f.snapshot()
		return len(polls) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	polls, serverHits := f.snapshot()
	assert.Equal(t, pollCall{key: "k2", ts: "1"}, polls[1])
	assert.Equal(t, 2, serverHits)

	cancel()
	assert.NoError(t, <-done)
}

func TestListen_RetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(vkError(100, "group_id is undefined"))
	}))
	defer srv.Close()
	lp := newTestLongPoll(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lp.Listen(ctx, make(chan types.Event)) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestListen_ReturnsOnCancelledContext(t *testing.T) {
	lp := newTestLongPoll(t, (&pollFixture{keys: []string{"k"}}).start(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, lp.Listen(ctx, make(chan types.Event)))
}

func TestWithWait_IgnoresOutOfRange(t *testing.T) {
	c, err := NewClient(Config{Token: "tok"})
	require.NoError(t, err)

	assert.Equal(t, DefaultWait, NewLongPoll(c, 1, WithWait(0)).wait)
	assert.Equal(t, DefaultWait, NewLongPoll(c, 1, WithWait(91)).wait)
	assert.Equal(t, 60, NewLongPoll(c, 1, WithWait(60)).wait)
}

func TestFlexString(t *testing.T) {
	var resp pollResponse
	require.NoError(t, json.Unmarshal([]byte(`{"ts":42}`), &resp))
	assert.Equal(t, flexString("42"), resp.TS)

	require.NoError(t, json.Unmarshal([]byte(`{"ts":"43"}`), &resp))
	assert.Equal(t, flexString("43"), resp.TS)
}
