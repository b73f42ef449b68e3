// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package dispatch classifies inbound events and carries out the
// moderation they call for.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gridkeeper/gridkeeper/internal/command"
	"github.com/gridkeeper/gridkeeper/internal/gateway"
	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/types"
)

// Authorizer is the permission model the dispatcher consults.
type Authorizer interface {
	IsOwner(userID int64) bool
	CanModerate(ctx context.Context, chatID, userID int64) bool
	Actionable(ctx context.Context, chatID, targetID int64) bool
}

// Config holds the dispatcher's static settings.
type Config struct {
	// BotID is the member id the platform uses for the bot itself in
	// service actions. Zero means unknown, in which case every invite is
	// treated as the bot being invited.
	BotID int64
}

// Dispatcher is the event-handling engine. It is stateless between events
// and safe to call from one goroutine at a time.
type Dispatcher struct {
	cfg     Config
	store   store.ModerationStore
	auth    Authorizer
	gateway gateway.Gateway
	logger  *slog.Logger
	nowFunc func() time.Time

	// auditFailCount tracks consecutive audit append failures for escalating log levels.
	auditFailCount atomic.Int64
}

// New creates a Dispatcher. logger may be nil.
func New(cfg Config, st store.ModerationStore, auth Authorizer, gw gateway.Gateway, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:     cfg,
		store:   st,
		auth:    auth,
		gateway: gw,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Handle processes one event. Service actions are checked first, then
// commands, then plain messages. The returned error is non-nil only for
// store failures; gateway failures are logged and absorbed.
func (d *Dispatcher) Handle(ctx context.Context, ev types.Event) error {
	if ev.PeerID == 0 {
		return nil
	}

	if ev.Action != nil {
		return d.handleAction(ctx, ev)
	}

	if verb, arg := command.Parse(ev.Text); verb != "" {
		if ev.FromID == 0 {
			return nil
		}
		return d.handleCommand(ctx, ev, verb, arg)
	}

	return d.handleMessage(ctx, ev)
}

func (d *Dispatcher) handleAction(ctx context.Context, ev types.Event) error {
	chatID, ok := ev.ChatID()
	if !ok {
		return nil
	}

	member := ev.Action.MemberID
	switch {
	case ev.Action.Type.IsJoin():
		if d.maybeBot(member) {
			return d.registerChat(ctx, ev, chatID)
		}
		return d.enforceBanOnJoin(ctx, chatID, member)
	case ev.Action.Type.IsDeparture():
		if d.isBot(member) {
			return d.unregisterChat(ctx, chatID)
		}
	}
	return nil
}

// maybeBot reports whether member could be the bot. Ambiguous members
// count as the bot.
func (d *Dispatcher) maybeBot(member int64) bool {
	return member == 0 || d.cfg.BotID == 0 || member == d.cfg.BotID
}

// isBot reports whether member is positively the bot.
func (d *Dispatcher) isBot(member int64) bool {
	return d.cfg.BotID != 0 && member == d.cfg.BotID
}

func (d *Dispatcher) registerChat(ctx context.Context, ev types.Event, chatID int64) error {
	added, err := d.store.Chats().Add(ctx, chatID)
	if err != nil {
		d.logger.Error("auto-registering chat failed", "chat_id", chatID, "error", err)
		return gkerr.Wrapf(err, gkerr.CodeDispatchHandlerFailure, "auto-registering chat %d", chatID)
	}
	if !added {
		return nil
	}

	d.logger.Info("chat auto-registered", "chat_id", chatID)
	d.audit(ctx, auditRecord{action: "chat.auto_register", actorID: ev.FromID, chatID: chatID, result: "added"})
	d.reply(ctx, ev.PeerID, replyChatAdded)
	return nil
}

func (d *Dispatcher) unregisterChat(ctx context.Context, chatID int64) error {
	removed, err := d.store.Chats().Remove(ctx, chatID)
	if err != nil {
		d.logger.Error("unregistering chat failed", "chat_id", chatID, "error", err)
		return gkerr.Wrapf(err, gkerr.CodeDispatchHandlerFailure, "unregistering chat %d", chatID)
	}
	if removed {
		d.logger.Info("bot removed from chat, chat left the grid", "chat_id", chatID)
		d.audit(ctx, auditRecord{action: "chat.auto_unregister", chatID: chatID, result: "removed"})
	}
	return nil
}

func (d *Dispatcher) enforceBanOnJoin(ctx context.Context, chatID, userID int64) error {
	if userID <= 0 {
		return nil
	}
	enforce, err := d.bannedInGrid(ctx, chatID, userID)
	if err != nil || !enforce {
		return err
	}
	if !d.auth.Actionable(ctx, chatID, userID) {
		d.logger.Debug("banned user is protected, not removed", "chat_id", chatID, "user_id", userID)
		return nil
	}
	d.removeBanned(ctx, chatID, userID, "join")
	return nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, ev types.Event) error {
	chatID, ok := ev.ChatID()
	if !ok || ev.FromID <= 0 {
		return nil
	}

	inGrid, err := d.store.Chats().Has(ctx, chatID)
	if err != nil {
		return d.storeFailure("checking grid membership", chatID, err)
	}
	if !inGrid {
		return nil
	}

	banned, err := d.store.Bans().IsBanned(ctx, ev.FromID)
	if err != nil {
		return d.storeFailure("checking ban", chatID, err)
	}
	if banned {
		if d.auth.Actionable(ctx, chatID, ev.FromID) {
			d.removeBanned(ctx, chatID, ev.FromID, "message")
			return nil
		}
		d.logger.Debug("banned user is protected, not removed", "chat_id", chatID, "user_id", ev.FromID)
	}

	silence, err := d.store.Settings().GetSilence(ctx, chatID)
	if err != nil {
		return d.storeFailure("reading silence", chatID, err)
	}
	if !silence || ev.ConversationMessageID <= 0 {
		return nil
	}
	if d.auth.CanModerate(ctx, chatID, ev.FromID) {
		return nil
	}

	if err := d.gateway.DeleteMessages(ctx, ev.PeerID, []int64{ev.ConversationMessageID}); err != nil {
		d.logger.Warn("deleting silenced message failed",
			"chat_id", chatID,
			"user_id", ev.FromID,
			"reason", gateway.Reason(err),
		)
	}
	return nil
}

// bannedInGrid reports whether userID is banned and chatID is a grid chat.
func (d *Dispatcher) bannedInGrid(ctx context.Context, chatID, userID int64) (bool, error) {
	inGrid, err := d.store.Chats().Has(ctx, chatID)
	if err != nil {
		return false, d.storeFailure("checking grid membership", chatID, err)
	}
	if !inGrid {
		return false, nil
	}
	banned, err := d.store.Bans().IsBanned(ctx, userID)
	if err != nil {
		return false, d.storeFailure("checking ban", chatID, err)
	}
	return banned, nil
}

func (d *Dispatcher) removeBanned(ctx context.Context, chatID, userID int64, trigger string) {
	result := "removed"
	if err := d.gateway.RemoveMember(ctx, chatID, userID); err != nil {
		result = gateway.Reason(err)
		d.logger.Warn("removing banned user failed",
			"chat_id", chatID,
			"user_id", userID,
			"reason", result,
		)
	} else {
		d.logger.Info("banned user removed", "chat_id", chatID, "user_id", userID, "trigger", trigger)
	}
	d.audit(ctx, auditRecord{
		action:   "ban.enforce",
		chatID:   chatID,
		targetID: userID,
		result:   result,
		details:  map[string]any{"trigger": trigger},
	})
}

func (d *Dispatcher) storeFailure(op string, chatID int64, err error) error {
	d.logger.Error("store failure", "op", op, "chat_id", chatID, "error", err)
	return gkerr.Wrapf(err, gkerr.CodeDispatchHandlerFailure, "%s in chat %d", op, chatID)
}

func (d *Dispatcher) reply(ctx context.Context, peerID int64, text string) {
	if err := d.gateway.SendMessage(ctx, peerID, text); err != nil {
		d.logger.Warn("sending reply failed", "peer_id", peerID, "reason", gateway.Reason(err))
	}
}
