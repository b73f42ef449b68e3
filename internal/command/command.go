// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package command turns message text into bot commands.
package command

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Sigil prefixes every command verb.
const Sigil = "/"

// AltSigil is accepted in place of Sigil and normalized to it.
const AltSigil = "!"

// Verb is a canonical command.
type Verb string

const (
	AddChat    Verb = "/add-chat"
	RemoveChat Verb = "/remove-chat"
	ListChats  Verb = "/list-chats"
	Ban        Verb = "/ban"
	Unban      Verb = "/unban"
	Kick       Verb = "/kick"
	KickAll    Verb = "/kick-all"
	Silence    Verb = "/silence"
	Bans       Verb = "/bans"
	Help       Verb = "/help"
)

// known lists canonical verbs in the order they are advertised.
var known = []Verb{AddChat, RemoveChat, ListChats, Ban, Unban, Kick, KickAll, Silence, Bans, Help}

var aliases = map[string]Verb{
	"/addchat":    AddChat,
	"/grid+":      AddChat,
	"/removechat": RemoveChat,
	"/grid-":      RemoveChat,
	"/grid":       ListChats,
	"/kickall":    KickAll,
	"/mute":       Silence,
}

// Known returns the canonical verbs.
func Known() []Verb {
	out := make([]Verb, len(known))
	copy(out, known)
	return out
}

// Lookup resolves a raw verb or alias to its canonical verb.
func Lookup(raw string) (Verb, bool) {
	raw = strings.ToLower(raw)
	for _, v := range known {
		if string(v) == raw {
			return v, true
		}
	}
	v, ok := aliases[raw]
	return v, ok
}

// NeedsChat reports whether the verb only makes sense inside a group chat.
func (v Verb) NeedsChat() bool {
	switch v {
	case Help, Bans, ListChats:
		return false
	default:
		return true
	}
}

// NeedsTarget reports whether the verb acts on a user.
func (v Verb) NeedsTarget() bool {
	switch v {
	case Ban, Unban, Kick, KickAll:
		return true
	default:
		return false
	}
}

// Parse splits text into a verb and its argument. The verb is the first
// whitespace-separated token lowercased, including the sigil. Text without
// the sigil yields empty strings.
func Parse(text string) (verb, arg string) {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, AltSigil); ok {
		text = Sigil + rest
	}
	if !strings.HasPrefix(text, Sigil) {
		return "", ""
	}

	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		return strings.ToLower(text), ""
	}
	return strings.ToLower(text[:end]), strings.TrimSpace(text[end:])
}

var mentionPattern = regexp.MustCompile(`(?i)\[id(\d+)\|[^\]]+\]|id(\d+)|https?://vk\.com/id(\d+)|@id(\d+)`)

// ExtractUserID finds a user id in a mention, a profile reference or a bare
// integer. Only positive ids are returned.
func ExtractUserID(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if m := mentionPattern.FindStringSubmatch(text); m != nil {
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			return positive(group)
		}
	}

	return positive(text)
}

func positive(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
