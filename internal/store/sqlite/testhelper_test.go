// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/gridkeeper/gridkeeper/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

func openStore(t *testing.T, name string) *sqlite.ModerationStore {
	t.Helper()
	ms, err := sqlite.NewModerationStore(testDBPath(t, name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}
