// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package types

// ActionType identifies a service action carried by a message.
type ActionType string

const (
	ActionInvite       ActionType = "invite"
	ActionInviteByLink ActionType = "invite_by_link"
	ActionKick         ActionType = "kick"
	ActionLeave        ActionType = "leave"
	ActionOther        ActionType = "other"
)

// IsJoin reports whether the action adds a member to the conversation.
func (a ActionType) IsJoin() bool {
	return a == ActionInvite || a == ActionInviteByLink
}

// IsDeparture reports whether the action removes a member.
func (a ActionType) IsDeparture() bool {
	return a == ActionKick || a == ActionLeave
}

// Action is a service event attached to a message.
type Action struct {
	Type ActionType `json:"type"`
	// MemberID is the subject of the action. Zero means the transport did
	// not say who joined or left.
	MemberID int64 `json:"member_id"`
}

// Reply references the message an inbound message answers.
type Reply struct {
	FromID int64 `json:"from_id"`
}

// Event is one inbound message normalized from the platform's wire format.
type Event struct {
	PeerID                int64   `json:"peer_id"`
	FromID                int64   `json:"from_id"`
	Text                  string  `json:"text"`
	ConversationMessageID int64   `json:"conversation_message_id"`
	Action                *Action `json:"action,omitempty"`
	Reply                 *Reply  `json:"reply,omitempty"`
}

// ChatID returns the chat id of the event's peer, if it is a group chat.
func (e Event) ChatID() (int64, bool) {
	return ChatIDFromPeer(e.PeerID)
}
