// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package types

// SystemPeerBase is the offset between a group chat's peer id and its chat
// id. Peers above it are group chats; peers below it are users or
// communities.
const SystemPeerBase int64 = 2_000_000_000

// ChatIDFromPeer maps a peer id to a chat id. Only peers strictly greater
// than SystemPeerBase are chats.
func ChatIDFromPeer(peerID int64) (int64, bool) {
	if peerID <= SystemPeerBase {
		return 0, false
	}
	return peerID - SystemPeerBase, true
}

// PeerFromChatID is the inverse of ChatIDFromPeer.
func PeerFromChatID(chatID int64) int64 {
	return chatID + SystemPeerBase
}
