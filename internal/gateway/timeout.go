// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package gateway

import (
	"context"
	"errors"
	"time"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// DefaultTimeout bounds one gateway call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

var _ Gateway = (*timeoutGateway)(nil)

// WithTimeout bounds every call on next by d. A call that outlives its
// deadline fails with gateway.call.timeout.
func WithTimeout(next Gateway, d time.Duration) Gateway {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutGateway{next: next, timeout: d}
}

func (g *timeoutGateway) SendMessage(ctx context.Context, peerID int64, text string) error {
	return g.bound(ctx, "send_message", func(ctx context.Context) error {
		return g.next.SendMessage(ctx, peerID, text)
	})
}

func (g *timeoutGateway) DeleteMessages(ctx context.Context, peerID int64, ids []int64) error {
	return g.bound(ctx, "delete_messages", func(ctx context.Context) error {
		return g.next.DeleteMessages(ctx, peerID, ids)
	})
}

func (g *timeoutGateway) RemoveMember(ctx context.Context, chatID, userID int64) error {
	return g.bound(ctx, "remove_member", func(ctx context.Context) error {
		return g.next.RemoveMember(ctx, chatID, userID)
	})
}

func (g *timeoutGateway) GetConversationMembers(ctx context.Context, peerID int64) ([]Member, error) {
	var members []Member
	err := g.bound(ctx, "get_conversation_members", func(ctx context.Context) error {
		var err error
		members, err = g.next.GetConversationMembers(ctx, peerID)
		return err
	})
	return members, err
}

// bound runs call under the deadline. The inner error is not wrapped on
// expiry so the timeout code is the one CodeOf reports.
func (g *timeoutGateway) bound(ctx context.Context, op string, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := call(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gkerr.New(gkerr.CodeGatewayTimeout, op+" timed out after "+g.timeout.String(),
			gkerr.FieldMethod(op), gkerr.Field("cause", err.Error()))
	}
	return err
}
