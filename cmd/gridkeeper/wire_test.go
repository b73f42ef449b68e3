// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/gridkeeper/internal/config"
	"github.com/gridkeeper/gridkeeper/internal/server"
)

// fakeVK answers groups.getById and counts every method call.
func fakeVK(t *testing.T, groupResponse string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/method/groups.getById" {
			_, _ = io.WriteString(w, groupResponse)
			return
		}
		_, _ = io.WriteString(w, `{"response":1}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testBotConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	isolateEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.OwnerID = 1
	cfg.VK.Token = "vk1.a.test"
	cfg.VK.APIURL = apiURL
	cfg.Storage.Path = filepath.Join(t.TempDir(), "bot.sqlite")
	cfg.Networking.Host = "127.0.0.1"
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWireBot_ResolvesGroupFromToken(t *testing.T) {
	srv, _ := fakeVK(t, `{"response":{"groups":[{"id":77,"name":"Grid HQ"}]}}`)
	cfg := testBotConfig(t, srv.URL+"/method")

	b, err := WireBot(context.Background(), cfg, testLogger(), wireOptions{httpClient: srv.Client()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	assert.Equal(t, int64(77), b.GroupID)
	assert.NotNil(t, b.Dispatcher)
	assert.NotNil(t, b.Runner)
}

func TestWireBot_ConfiguredGroupSkipsLookup(t *testing.T) {
	srv, calls := fakeVK(t, `{"response":[]}`)
	cfg := testBotConfig(t, srv.URL+"/method")
	cfg.VK.GroupID = 12

	b, err := WireBot(context.Background(), cfg, testLogger(), wireOptions{httpClient: srv.Client()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	assert.Equal(t, int64(12), b.GroupID)
	assert.Zero(t, calls.Load())
}

func TestWireBot_RejectedToken(t *testing.T) {
	srv, _ := fakeVK(t, `{"error":{"error_code":5,"error_msg":"User authorization failed"}}`)
	cfg := testBotConfig(t, srv.URL+"/method")

	_, err := WireBot(context.Background(), cfg, testLogger(), wireOptions{httpClient: srv.Client()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving community")
}

func TestWireBot_ServesHealthAndStatus(t *testing.T) {
	srv, _ := fakeVK(t, `{"response":[{"id":3,"name":"Grid"}]}`)
	cfg := testBotConfig(t, srv.URL+"/method")

	b, err := WireBot(context.Background(), cfg, testLogger(), wireOptions{httpClient: srv.Client()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	_, err = b.Store.Chats().Add(context.Background(), 8)
	require.NoError(t, err)

	h := b.Server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st server.Status
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&st))
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, 1, st.Chats)
	assert.Zero(t, st.Events.Received)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
