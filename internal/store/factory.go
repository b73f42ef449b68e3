// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package store

import (
	"sync"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// ModerationStoreFactory opens a moderation store at the given path.
type ModerationStoreFactory func(path string) (ModerationStore, error)

var (
	factories   = map[string]ModerationStoreFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory ModerationStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends returns the names of every registered backend.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewModerationStore opens the moderation store for the configured backend.
func NewModerationStore(cfg *StorageConfig, path string) (ModerationStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, gkerr.Errorf(gkerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(path)
}
