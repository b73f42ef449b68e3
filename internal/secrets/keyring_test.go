// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/gridkeeper/gridkeeper/internal/secrets"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

func init() {
	// Never touch the real OS keyring from tests.
	keyring.MockInit()
}

func TestKeyringStore_StoreAndRetrieve(t *testing.T) {
	ks := secrets.NewKeyringStore()

	require.NoError(t, ks.Store("test-store-retrieve", secrets.TokenKey, "vk1.a.secret"))

	val, err := ks.Retrieve("test-store-retrieve", secrets.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "vk1.a.secret", val)
}

func TestKeyringStore_NotFound(t *testing.T) {
	ks := secrets.NewKeyringStore()

	_, err := ks.Retrieve("no-such-service", "no-key")
	assert.True(t, gkerr.HasCode(err, gkerr.CodeSecretNotFound), "got %v", err)

	err = ks.Delete("no-such-service", "no-key")
	assert.True(t, gkerr.HasCode(err, gkerr.CodeSecretNotFound), "got %v", err)
}

func TestKeyringStore_DeleteRemovesFromIndex(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-delete"

	require.NoError(t, ks.Store(svc, "key-x", "val"))
	require.NoError(t, ks.Store(svc, "key-y", "val"))
	require.NoError(t, ks.Delete(svc, "key-x"))

	_, err := ks.Retrieve(svc, "key-x")
	assert.True(t, gkerr.HasCode(err, gkerr.CodeSecretNotFound))

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"key-y"}, keys)
}

func TestKeyringStore_ListSortedWithoutDuplicates(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-list"

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, ks.Store(svc, "key-c", "1"))
	require.NoError(t, ks.Store(svc, "key-a", "2"))
	require.NoError(t, ks.Store(svc, "key-c", "3"))

	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"key-a", "key-c"}, keys)

	val, err := ks.Retrieve(svc, "key-c")
	require.NoError(t, err)
	assert.Equal(t, "3", val)
}

func TestKeyringStore_EmptyRef(t *testing.T) {
	ks := secrets.NewKeyringStore()

	for _, ref := range [][2]string{{"", "key"}, {"svc", ""}} {
		err := ks.Store(ref[0], ref[1], "v")
		require.Error(t, err)
		assert.True(t, gkerr.HasCode(err, gkerr.CodeSecretInvalidInput))
	}
	assert.NoError(t, ks.Store("svc-empty-value", "key", ""))
}
