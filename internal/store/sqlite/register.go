// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package sqlite

import "github.com/gridkeeper/gridkeeper/internal/store"

func init() {
	store.RegisterBackend("sqlite", newModerationStore)
}

func newModerationStore(path string) (store.ModerationStore, error) {
	return NewModerationStore(path)
}
