// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/types"
)

// cliActor marks audit entries written by offline commands.
const cliActor = "cli"

// openStore opens the configured database for offline administration.
// The config must be valid, but no owner or token is needed.
func openStore() (store.ModerationStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, gkerr.Errorf(gkerr.CodeConfigValidateInvalidValue, "invalid configuration: %w", errors.Join(errs...))
	}

	st, err := store.NewModerationStore(&store.StorageConfig{Backend: cfg.Storage.Backend}, cfg.Storage.Path)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "opening store: %w", err)
	}
	return st, nil
}

// withStore runs fn against a freshly opened store and closes it.
func withStore(fn func(store.ModerationStore) error) (err error) {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = gkerr.Wrapf(cerr, gkerr.CodeStoreDatabaseFailure, "closing store")
		}
	}()
	return fn(st)
}

// parseChatArg accepts a local chat id or a chat peer id.
func parseChatArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, gkerr.Errorf(gkerr.CodeCLIInputInvalid, "invalid chat id %q", s)
	}
	if chatID, ok := types.ChatIDFromPeer(id); ok {
		return chatID, nil
	}
	return id, nil
}

func parseUserArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, gkerr.Errorf(gkerr.CodeCLIInputInvalid, "invalid user id %q", s)
	}
	return id, nil
}

// auditCLI records an offline change. Like the bot's own audit trail it
// is best-effort: a failed append does not undo the change.
func auditCLI(ctx context.Context, st store.ModerationStore, action string, chatID, targetID int64, result string) {
	_ = st.AuditLog().Append(ctx, &store.AuditEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		ChatID:    chatID,
		TargetID:  targetID,
		Result:    result,
		Details:   map[string]any{"source": cliActor},
	})
}

func resultOf(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
