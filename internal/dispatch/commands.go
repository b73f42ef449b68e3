// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package dispatch

import (
	"context"
	"strings"

	"github.com/gridkeeper/gridkeeper/internal/command"
	"github.com/gridkeeper/gridkeeper/internal/gateway"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/types"
)

type authLevel int

const (
	authNone authLevel = iota
	authModerator
	authOwner
)

// request is the per-command context built before a handler runs.
type request struct {
	ev       types.Event
	verb     command.Verb
	arg      string
	chatID   int64 // 0 outside group chats
	targetID int64 // 0 for verbs without a target
}

type handlerFunc func(d *Dispatcher, ctx context.Context, req *request) error

type route struct {
	auth    authLevel
	protect bool // target must be actionable
	handle  handlerFunc
}

var routes = map[command.Verb]route{
	command.AddChat:    {auth: authOwner, handle: (*Dispatcher).addChat},
	command.RemoveChat: {auth: authOwner, handle: (*Dispatcher).removeChat},
	command.ListChats:  {auth: authNone, handle: (*Dispatcher).listChats},
	command.Ban:        {auth: authModerator, protect: true, handle: (*Dispatcher).ban},
	command.Unban:      {auth: authModerator, handle: (*Dispatcher).unban},
	command.Kick:       {auth: authModerator, protect: true, handle: (*Dispatcher).kick},
	command.KickAll:    {auth: authModerator, protect: true, handle: (*Dispatcher).kickAll},
	command.Silence:    {auth: authModerator, handle: (*Dispatcher).silence},
	command.Bans:       {auth: authModerator, handle: (*Dispatcher).listBans},
	command.Help:       {auth: authNone, handle: (*Dispatcher).help},
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev types.Event, raw, arg string) error {
	verb, ok := command.Lookup(raw)
	if !ok {
		d.reply(ctx, ev.PeerID, replyUnknown())
		return nil
	}
	rt := routes[verb]

	req := &request{ev: ev, verb: verb, arg: arg}
	if chatID, isChat := ev.ChatID(); isChat {
		req.chatID = chatID
	}

	log := d.logger.With("verb", string(verb), "peer_id", ev.PeerID, "from_id", ev.FromID)

	if verb.NeedsChat() && req.chatID == 0 {
		d.reply(ctx, ev.PeerID, replyChatOnly)
		return nil
	}

	if verb.NeedsTarget() {
		target, ok := resolveTarget(ev, arg)
		if !ok {
			log.Debug("command target unresolved", "arg", arg)
			d.reply(ctx, ev.PeerID, replyNeedTarget)
			return nil
		}
		req.targetID = target
	}

	switch rt.auth {
	case authOwner:
		if !d.auth.IsOwner(ev.FromID) {
			log.Debug("owner command denied")
			d.reply(ctx, ev.PeerID, replyOwnerOnly)
			return nil
		}
	case authModerator:
		if !d.auth.CanModerate(ctx, req.chatID, ev.FromID) {
			log.Debug("moderator command denied")
			d.reply(ctx, ev.PeerID, replyNotAllowed)
			return nil
		}
	}

	if rt.protect && !d.auth.Actionable(ctx, req.chatID, req.targetID) {
		log.Debug("target is protected", "target_id", req.targetID)
		d.reply(ctx, ev.PeerID, replyProtected)
		return nil
	}

	if err := rt.handle(d, ctx, req); err != nil {
		log.Error("command failed", "error", err)
		d.reply(ctx, ev.PeerID, replyCommandFailed)
		return gkerr.Wrapf(err, gkerr.CodeDispatchHandlerFailure, "handling %s", verb)
	}
	return nil
}

// resolveTarget prefers an explicit argument and falls back to the sender
// of the replied-to message.
func resolveTarget(ev types.Event, arg string) (int64, bool) {
	if arg != "" {
		if id, ok := command.ExtractUserID(arg); ok {
			return id, true
		}
	}
	if ev.Reply != nil && ev.Reply.FromID > 0 {
		return ev.Reply.FromID, true
	}
	return 0, false
}

func (d *Dispatcher) addChat(ctx context.Context, req *request) error {
	added, err := d.store.Chats().Add(ctx, req.chatID)
	if err != nil {
		return err
	}
	d.audit(ctx, auditRecord{action: "chat.add", actorID: req.ev.FromID, chatID: req.chatID, result: resultOf(added, "added", "present")})
	if added {
		d.reply(ctx, req.ev.PeerID, replyChatAdded)
	} else {
		d.reply(ctx, req.ev.PeerID, replyChatAlreadyAdded)
	}
	return nil
}

func (d *Dispatcher) removeChat(ctx context.Context, req *request) error {
	removed, err := d.store.Chats().Remove(ctx, req.chatID)
	if err != nil {
		return err
	}
	d.audit(ctx, auditRecord{action: "chat.remove", actorID: req.ev.FromID, chatID: req.chatID, result: resultOf(removed, "removed", "absent")})
	if removed {
		d.reply(ctx, req.ev.PeerID, replyChatRemoved)
	} else {
		d.reply(ctx, req.ev.PeerID, replyChatNotInGrid)
	}
	return nil
}

func (d *Dispatcher) listChats(ctx context.Context, req *request) error {
	chats, err := d.store.Chats().List(ctx)
	if err != nil {
		return err
	}
	d.reply(ctx, req.ev.PeerID, replyChatCount(len(chats)))
	return nil
}

func (d *Dispatcher) ban(ctx context.Context, req *request) error {
	if _, err := d.store.Bans().Add(ctx, req.targetID); err != nil {
		return err
	}

	chats, err := d.store.Chats().List(ctx)
	if err != nil {
		return err
	}

	res := d.fanOut(ctx, append(chats, req.chatID), req.targetID)
	d.audit(ctx, auditRecord{
		action:   "ban",
		actorID:  req.ev.FromID,
		chatID:   req.chatID,
		targetID: req.targetID,
		result:   fanOutResultLabel(res),
		details:  res.details(),
	})
	d.reply(ctx, req.ev.PeerID, replyBanned(req.targetID, res))
	return nil
}

func (d *Dispatcher) unban(ctx context.Context, req *request) error {
	removed, err := d.store.Bans().Remove(ctx, req.targetID)
	if err != nil {
		return err
	}
	d.audit(ctx, auditRecord{
		action:   "unban",
		actorID:  req.ev.FromID,
		chatID:   req.chatID,
		targetID: req.targetID,
		result:   resultOf(removed, "removed", "absent"),
	})
	d.reply(ctx, req.ev.PeerID, replyUnbanned(req.targetID, removed))
	return nil
}

func (d *Dispatcher) kick(ctx context.Context, req *request) error {
	var reason string
	if err := d.gateway.RemoveMember(ctx, req.chatID, req.targetID); err != nil {
		reason = gateway.Reason(err)
		d.logger.Warn("kick failed", "chat_id", req.chatID, "user_id", req.targetID, "reason", reason)
	}
	d.audit(ctx, auditRecord{
		action:   "kick",
		actorID:  req.ev.FromID,
		chatID:   req.chatID,
		targetID: req.targetID,
		result:   resultOf(reason == "", "ok", reason),
	})
	d.reply(ctx, req.ev.PeerID, replyKicked(req.targetID, reason))
	return nil
}

func (d *Dispatcher) kickAll(ctx context.Context, req *request) error {
	chats, err := d.store.Chats().List(ctx)
	if err != nil {
		return err
	}

	res := d.fanOut(ctx, chats, req.targetID)
	d.audit(ctx, auditRecord{
		action:   "kick_all",
		actorID:  req.ev.FromID,
		chatID:   req.chatID,
		targetID: req.targetID,
		result:   fanOutResultLabel(res),
		details:  res.details(),
	})
	d.reply(ctx, req.ev.PeerID, replyKickedAll(req.targetID, res))
	return nil
}

func (d *Dispatcher) silence(ctx context.Context, req *request) error {
	enabled, ok := parseSwitch(req.arg)
	if !ok {
		d.reply(ctx, req.ev.PeerID, replySilenceUsage)
		return nil
	}

	if err := d.store.Settings().SetSilence(ctx, req.chatID, enabled); err != nil {
		return err
	}
	d.audit(ctx, auditRecord{action: "silence", actorID: req.ev.FromID, chatID: req.chatID, result: resultOf(enabled, "on", "off")})
	if enabled {
		d.reply(ctx, req.ev.PeerID, replySilenceOn)
	} else {
		d.reply(ctx, req.ev.PeerID, replySilenceOff)
	}
	return nil
}

func (d *Dispatcher) listBans(ctx context.Context, req *request) error {
	ids, err := d.store.Bans().List(ctx)
	if err != nil {
		return err
	}
	d.reply(ctx, req.ev.PeerID, replyBanList(ids))
	return nil
}

func (d *Dispatcher) help(ctx context.Context, req *request) error {
	d.reply(ctx, req.ev.PeerID, replyHelp())
	return nil
}

func parseSwitch(arg string) (bool, bool) {
	first, _, _ := strings.Cut(strings.TrimSpace(arg), " ")
	switch strings.ToLower(first) {
	case "on", "1", "enable", "true":
		return true, true
	case "off", "0", "disable", "false":
		return false, true
	default:
		return false, false
	}
}

func resultOf(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func fanOutResultLabel(res FanOutResult) string {
	if res.Failed() == 0 {
		return "ok"
	}
	return "partial"
}
