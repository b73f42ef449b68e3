// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package vk

import (
	"encoding/json"

	"github.com/gridkeeper/gridkeeper/pkg/types"
)

type wireMessage struct {
	PeerID                int64  `json:"peer_id"`
	FromID                int64  `json:"from_id"`
	Text                  string `json:"text"`
	ConversationMessageID int64  `json:"conversation_message_id"`
	Action                *struct {
		Type     string `json:"type"`
		MemberID int64  `json:"member_id"`
	} `json:"action"`
	ReplyMessage *struct {
		FromID int64 `json:"from_id"`
	} `json:"reply_message"`
}

// decodeUpdate converts a message_new update into an event. Other update
// types are skipped.
func decodeUpdate(u update) (types.Event, bool) {
	if u.Type != "message_new" {
		return types.Event{}, false
	}

	var obj struct {
		Message wireMessage `json:"message"`
	}
	if err := json.Unmarshal(u.Object, &obj); err != nil {
		return types.Event{}, false
	}
	return normalize(obj.Message), obj.Message.PeerID != 0
}

func normalize(m wireMessage) types.Event {
	ev := types.Event{
		PeerID:                m.PeerID,
		FromID:                m.FromID,
		Text:                  m.Text,
		ConversationMessageID: m.ConversationMessageID,
	}
	if m.ReplyMessage != nil {
		ev.Reply = &types.Reply{FromID: m.ReplyMessage.FromID}
	}
	if m.Action != nil {
		ev.Action = &types.Action{Type: actionType(m.Action.Type, m.Action.MemberID, m.FromID), MemberID: m.Action.MemberID}
		// Joining by link names nobody; the joiner is the sender.
		if ev.Action.Type == types.ActionInviteByLink && ev.Action.MemberID == 0 {
			ev.Action.MemberID = m.FromID
		}
	}
	return ev
}

func actionType(raw string, memberID, fromID int64) types.ActionType {
	switch raw {
	case "chat_invite_user":
		return types.ActionInvite
	case "chat_invite_user_by_link":
		return types.ActionInviteByLink
	case "chat_kick_user":
		if memberID != 0 && memberID == fromID {
			return types.ActionLeave
		}
		return types.ActionKick
	default:
		return types.ActionOther
	}
}
