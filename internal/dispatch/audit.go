// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package dispatch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridkeeper/gridkeeper/internal/store"
)

// auditLogEscalationThreshold is the number of consecutive audit failures
// after which they are logged at error level.
const auditLogEscalationThreshold = 3

type auditRecord struct {
	action   string
	actorID  int64
	chatID   int64
	targetID int64
	result   string
	details  map[string]any
}

// audit appends a best-effort audit entry. Failures never fail the command.
func (d *Dispatcher) audit(ctx context.Context, rec auditRecord) {
	entry := &store.AuditEntry{
		ID:        uuid.New().String(),
		Timestamp: d.nowFunc().UTC(),
		Action:    rec.action,
		ActorID:   rec.actorID,
		ChatID:    rec.chatID,
		TargetID:  rec.targetID,
		Result:    rec.result,
		Details:   rec.details,
	}

	if err := d.store.AuditLog().Append(ctx, entry); err != nil {
		consecutive := d.auditFailCount.Add(1)
		level := slog.LevelWarn
		if consecutive >= auditLogEscalationThreshold {
			level = slog.LevelError
		}
		d.logger.LogAttrs(ctx, level, "audit store append failed",
			slog.Any("error", err),
			slog.String("action", rec.action),
			slog.Int64("chat_id", rec.chatID),
			slog.Int64("consecutive_failures", consecutive),
		)
		return
	}
	d.auditFailCount.Store(0)
}
