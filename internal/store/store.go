// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package store

import "context"

// ModerationStore is the durable registry of grid chats, bans, per-chat
// settings and the moderation audit trail.
type ModerationStore interface {
	Chats() ChatStore
	Bans() BanStore
	Settings() SettingStore
	AuditLog() AuditStore
	Close() error
}

// ChatStore manages grid membership. Membership is a set.
type ChatStore interface {
	// Add reports true iff the chat was not already in the grid.
	Add(ctx context.Context, chatID int64) (bool, error)
	// Remove reports true iff the chat was in the grid. The chat's
	// settings row is deleted in the same transaction.
	Remove(ctx context.Context, chatID int64) (bool, error)
	Has(ctx context.Context, chatID int64) (bool, error)
	// List returns chat ids in ascending order.
	List(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
}

// BanStore manages the global ban set.
type BanStore interface {
	Add(ctx context.Context, userID int64) (bool, error)
	Remove(ctx context.Context, userID int64) (bool, error)
	IsBanned(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
}

// SettingStore manages per-chat moderation flags.
type SettingStore interface {
	SetSilence(ctx context.Context, chatID int64, enabled bool) error
	// GetSilence returns false for chats without a settings row.
	GetSilence(ctx context.Context, chatID int64) (bool, error)
}

// AuditStore manages the append-only moderation audit log.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}
