// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/gridkeeper/internal/server"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/health"
)

func runStatusCmd(t *testing.T, addr string) string {
	t.Helper()
	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--address", addr})
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestStatusCommand_Running(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(server.Status{
			Status:  "ok",
			Chats:   3,
			Bans:    2,
			Gateway: health.Metrics{CallCount: 10, FailureCount: 1, LastReason: "timeout", Available: true},
			Events:  server.EventStats{Received: 40, Failed: 1},
		})
	}))
	defer srv.Close()

	out := runStatusCmd(t, strings.TrimPrefix(srv.URL, "http://"))
	assert.Contains(t, out, ": ok")
	assert.Contains(t, out, "chats:   3")
	assert.Contains(t, out, "bans:    2")
	assert.Contains(t, out, "40 received, 1 failed")
	assert.Contains(t, out, "(last: timeout)")
}

func TestStatusCommand_NotRunning(t *testing.T) {
	addr := closedAddr(t)
	out := runStatusCmd(t, addr)
	assert.Contains(t, out, "is not running")
}

func TestStatusCommand_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := runStatusCmd(t, strings.TrimPrefix(srv.URL, "http://"))
	assert.Contains(t, out, "status 500")
}

func TestBotClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var dest server.Status
	err := newBotClient(strings.TrimPrefix(srv.URL, "http://")).getJSON("/api/v1/status", &dest)
	requireCode(t, err, gkerr.CodeCLIResponseInvalid)
}

func TestBotClient_ConnectionRefused(t *testing.T) {
	var dest server.Status
	err := newBotClient(closedAddr(t)).getJSON("/api/v1/status", &dest)
	requireCode(t, err, gkerr.CodeCLIGatewayNotRunning)
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}
