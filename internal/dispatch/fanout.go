// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package dispatch

import (
	"context"
	"slices"

	"github.com/gridkeeper/gridkeeper/internal/gateway"
)

// Failure is one chat where a fan-out removal did not succeed.
type Failure struct {
	ChatID int64
	Reason string
}

// FanOutResult reports a removal attempted across several chats.
type FanOutResult struct {
	Attempted []int64
	Failures  []Failure
}

// Failed returns the number of chats where removal failed.
func (r FanOutResult) Failed() int { return len(r.Failures) }

// fanOut removes userID from every chat in ascending chat id order. A
// failing chat never stops the loop.
func (d *Dispatcher) fanOut(ctx context.Context, chats []int64, userID int64) FanOutResult {
	targets := slices.Clone(chats)
	slices.Sort(targets)
	targets = slices.Compact(targets)

	res := FanOutResult{Attempted: targets}
	for _, chatID := range targets {
		if err := d.gateway.RemoveMember(ctx, chatID, userID); err != nil {
			reason := gateway.Reason(err)
			d.logger.Warn("fan-out removal failed",
				"chat_id", chatID,
				"user_id", userID,
				"reason", reason,
			)
			res.Failures = append(res.Failures, Failure{ChatID: chatID, Reason: reason})
		}
	}
	return res
}

func (r FanOutResult) details() map[string]any {
	failed := make([]any, 0, len(r.Failures))
	for _, f := range r.Failures {
		failed = append(failed, map[string]any{"chat_id": f.ChatID, "reason": f.Reason})
	}
	return map[string]any{
		"attempted": len(r.Attempted),
		"failures":  failed,
	}
}
