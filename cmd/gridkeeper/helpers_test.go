// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/gridkeeper/internal/secrets"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// isolateEnv points HOME at a temp dir and blanks every variable the
// config layer reads, so host settings cannot leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"VK_TOKEN", "VK_API_TOKEN", "OWNER_ID", "DB_PATH", "HOST", "PORT",
		"GRIDKEEPER_VK_TOKEN", "GRIDKEEPER_OWNER_ID", "GRIDKEEPER_STORAGE_PATH",
		"GRIDKEEPER_NETWORKING_HOST", "GRIDKEEPER_NETWORKING_PORT",
	} {
		t.Setenv(name, "")
	}
	return home
}

// testDBPath returns a fresh database path inside the test's temp dir.
func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bot.sqlite")
}

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// mockSecretStore is an in-memory secrets.Store.
type mockSecretStore struct {
	data     map[string]string
	storeErr error
}

func newMockSecretStore(keys ...string) *mockSecretStore {
	m := &mockSecretStore{data: make(map[string]string)}
	for _, k := range keys {
		m.data[k] = "redacted"
	}
	return m
}

func (m *mockSecretStore) Store(_, key, value string) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.data[key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(_, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", gkerr.Errorf(gkerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(_, key string) error {
	if _, ok := m.data[key]; !ok {
		return gkerr.Errorf(gkerr.CodeSecretNotFound, "not found")
	}
	delete(m.data, key)
	return nil
}

func (m *mockSecretStore) List(_ string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// useSecretStore swaps secretStoreFactory for the duration of the test.
func useSecretStore(t *testing.T, s *mockSecretStore) {
	t.Helper()
	orig := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return s }
	t.Cleanup(func() { secretStoreFactory = orig })
}

func requireCode(t *testing.T, err error, code gkerr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, gkerr.HasCode(err, code), "want code %s, got %s (%v)", code, gkerr.CodeOf(err), err)
}
