// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package dispatch

import (
	"fmt"
	"strings"

	"github.com/gridkeeper/gridkeeper/internal/command"
)

const (
	replyChatAdded        = "Chat added to the grid"
	replyChatAlreadyAdded = "Chat is already in the grid"
	replyChatRemoved      = "Chat removed from the grid"
	replyChatNotInGrid    = "Chat is not in the grid"
	replyChatOnly         = "This command works only in a group chat"
	replyNeedTarget       = "Specify a user: reply to their message or pass an id or mention"
	replyNotAllowed       = "You are not allowed to use this command"
	replyOwnerOnly        = "Only the bot owner can use this command"
	replyProtected        = "Cannot act on an administrator"
	replyCommandFailed    = "Command failed, please try again later"
	replySilenceOn        = "Silence mode enabled"
	replySilenceOff       = "Silence mode disabled"
	replySilenceUsage     = "Usage: /silence on|off"
)

func replyChatCount(n int) string {
	return fmt.Sprintf("%d chats in the grid", n)
}

func replyBanned(userID int64, res FanOutResult) string {
	if res.Failed() == 0 {
		return fmt.Sprintf("User %d banned and removed from the grid", userID)
	}
	return fmt.Sprintf("User %d banned, removal failed in %d chats", userID, res.Failed())
}

func replyUnbanned(userID int64, removed bool) string {
	if removed {
		return fmt.Sprintf("User %d unbanned", userID)
	}
	return fmt.Sprintf("User %d is not banned", userID)
}

func replyKicked(userID int64, reason string) string {
	if reason == "" {
		return fmt.Sprintf("User %d removed from the chat", userID)
	}
	return fmt.Sprintf("Could not remove user %d: %s", userID, reason)
}

func replyKickedAll(userID int64, res FanOutResult) string {
	if res.Failed() == 0 {
		return fmt.Sprintf("User %d removed from all grid chats", userID)
	}
	return fmt.Sprintf("User %d removal failed in %d chats", userID, res.Failed())
}

func replyBanList(ids []int64) string {
	if len(ids) == 0 {
		return "0 banned users"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%d banned users: %s", len(ids), strings.Join(parts, ", "))
}

func verbList() string {
	verbs := command.Known()
	parts := make([]string, len(verbs))
	for i, v := range verbs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func replyUnknown() string {
	return "Unknown command. Available: " + verbList()
}

func replyHelp() string {
	return "Available commands: " + verbList()
}
