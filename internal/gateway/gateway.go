// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package gateway defines the messaging-platform capabilities the bot
// consumes, plus decorators that bound and observe every call.
package gateway

import (
	"context"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// Member is one participant of a conversation as reported by the platform.
type Member struct {
	MemberID int64 `json:"member_id"`
	IsAdmin  bool  `json:"is_admin"`
	IsOwner  bool  `json:"is_owner"`
}

// MemberLister looks up conversation participants.
type MemberLister interface {
	GetConversationMembers(ctx context.Context, peerID int64) ([]Member, error)
}

// Gateway is the set of platform actions the dispatcher issues.
type Gateway interface {
	MemberLister

	SendMessage(ctx context.Context, peerID int64, text string) error
	// DeleteMessages removes messages by their conversation message ids.
	DeleteMessages(ctx context.Context, peerID int64, conversationMessageIDs []int64) error
	// RemoveMember removes a user from a chat. chatID is the chat id, not
	// the peer id.
	RemoveMember(ctx context.Context, chatID, userID int64) error
}

// ReasonField is the error field implementations use to carry a
// human-readable failure reason.
const ReasonField = "reason"

// Reason returns a short description of a gateway failure for user-facing
// replies.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if gkerr.IsTimeout(err) {
		return "timeout"
	}
	if r, ok := gkerr.FieldsOf(err)[ReasonField].(string); ok && r != "" {
		return r
	}
	switch gkerr.CodeOf(err) {
	case gkerr.CodeGatewayUpstreamFailure:
		return "api_error"
	case gkerr.CodeGatewayRequestFailure:
		return "network_error"
	case gkerr.CodeGatewayResponseInvalid:
		return "bad_response"
	case gkerr.CodeGatewayPermissionDenied:
		return "permission_denied"
	case gkerr.CodeGatewayMemberNotFound:
		return "not_a_member"
	case "":
		return "unknown"
	default:
		return gkerr.Reason(err)
	}
}
