// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditStore_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	ms := openStore(t, "audit")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{"ban", "kick", "ban"} {
		err := ms.AuditLog().Append(ctx, &store.AuditEntry{
			ID:        fmt.Sprintf("aud-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Action:    action,
			ActorID:   1,
			ChatID:    5,
			TargetID:  int64(100 + i),
			Result:    "ok",
			Details:   map[string]any{"failures": float64(i)},
		})
		require.NoError(t, err)
	}

	all, err := ms.AuditLog().Query(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "aud-0", all[0].ID)
	assert.Equal(t, base, all[0].Timestamp)
	assert.Equal(t, float64(2), all[2].Details["failures"])

	bans, err := ms.AuditLog().Query(ctx, store.AuditFilter{Action: "ban"})
	require.NoError(t, err)
	assert.Len(t, bans, 2)

	byTarget, err := ms.AuditLog().Query(ctx, store.AuditFilter{TargetID: 101})
	require.NoError(t, err)
	require.Len(t, byTarget, 1)
	assert.Equal(t, "kick", byTarget[0].Action)

	window, err := ms.AuditLog().Query(ctx, store.AuditFilter{
		From: base.Add(time.Minute),
		To:   base.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "aud-1", window[0].ID)

	limited, err := ms.AuditLog().Query(ctx, store.AuditFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "aud-1", limited[0].ID)
}

func TestAuditStore_AppendRequiresID(t *testing.T) {
	err := openStore(t, "audit-invalid").AuditLog().Append(context.Background(), &store.AuditEntry{Action: "ban"})
	require.Error(t, err)
	assert.True(t, gkerr.IsInvalidInput(err))
}
