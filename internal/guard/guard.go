// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package guard decides who may moderate a chat and who may be moderated.
package guard

import (
	"context"
	"log/slog"

	"github.com/gridkeeper/gridkeeper/internal/gateway"
	"github.com/gridkeeper/gridkeeper/pkg/types"
)

// Guard answers permission questions. A failed member lookup counts as
// "not an admin" for both the actor and the target.
type Guard struct {
	ownerID int64
	members gateway.MemberLister
	logger  *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used for lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Guard for the configured bot owner. An ownerID of 0 makes
// nobody the owner.
func New(ownerID int64, members gateway.MemberLister, opts ...Option) *Guard {
	g := &Guard{ownerID: ownerID, members: members, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OwnerID returns the configured bot owner.
func (g *Guard) OwnerID() int64 { return g.ownerID }

// IsOwner reports whether userID is the configured bot owner.
func (g *Guard) IsOwner(userID int64) bool {
	return g.ownerID != 0 && userID == g.ownerID
}

// IsChatAdmin reports whether userID administers or owns the chat.
func (g *Guard) IsChatAdmin(ctx context.Context, chatID, userID int64) bool {
	m, ok := g.lookup(ctx, chatID, userID)
	return ok && (m.IsAdmin || m.IsOwner)
}

// CanModerate reports whether userID may issue moderation commands in chatID.
func (g *Guard) CanModerate(ctx context.Context, chatID, userID int64) bool {
	return g.IsOwner(userID) || g.IsChatAdmin(ctx, chatID, userID)
}

// Actionable reports whether targetID may be kicked or banned in chatID.
// Chat admins, the chat owner and the bot owner are protected. When the
// member lookup fails the target is actionable.
func (g *Guard) Actionable(ctx context.Context, chatID, targetID int64) bool {
	if g.IsOwner(targetID) {
		return false
	}
	return !g.IsChatAdmin(ctx, chatID, targetID)
}

func (g *Guard) lookup(ctx context.Context, chatID, userID int64) (gateway.Member, bool) {
	if chatID <= 0 || g.members == nil {
		return gateway.Member{}, false
	}

	members, err := g.members.GetConversationMembers(ctx, types.PeerFromChatID(chatID))
	if err != nil {
		g.logger.Debug("member lookup failed",
			"chat_id", chatID,
			"user_id", userID,
			"reason", gateway.Reason(err),
		)
		return gateway.Member{}, false
	}

	for _, m := range members {
		if m.MemberID == userID {
			return m, true
		}
	}
	return gateway.Member{}, false
}
