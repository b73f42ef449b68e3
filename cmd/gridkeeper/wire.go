// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gridkeeper/gridkeeper/internal/bot"
	"github.com/gridkeeper/gridkeeper/internal/channel/vk"
	"github.com/gridkeeper/gridkeeper/internal/config"
	"github.com/gridkeeper/gridkeeper/internal/dispatch"
	"github.com/gridkeeper/gridkeeper/internal/gateway"
	"github.com/gridkeeper/gridkeeper/internal/guard"
	"github.com/gridkeeper/gridkeeper/internal/server"
	"github.com/gridkeeper/gridkeeper/internal/store"
	_ "github.com/gridkeeper/gridkeeper/internal/store/sqlite" // register sqlite backend
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// Bot holds every wired subsystem and manages their lifecycle.
type Bot struct {
	Store      store.ModerationStore
	Client     *vk.Client
	GroupID    int64
	Health     *gateway.HealthTracker
	Dispatcher *dispatch.Dispatcher
	Lane       *bot.Lane
	Runner     *bot.Runner
	Server     *server.Server
}

// wireOptions carries test seams.
type wireOptions struct {
	httpClient *http.Client
}

// WireBot opens the store, connects to VK and assembles the pipeline. The
// caller must Close the returned Bot.
func WireBot(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts wireOptions) (*Bot, error) {
	st, err := store.NewModerationStore(&store.StorageConfig{Backend: cfg.Storage.Backend}, cfg.Storage.Path)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "opening store: %w", err)
	}

	b, err := wireWithStore(ctx, cfg, logger, opts, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return b, nil
}

func wireWithStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts wireOptions, st store.ModerationStore) (*Bot, error) {
	client, err := vk.NewClient(vk.Config{
		Token:      cfg.VK.Token,
		APIURL:     cfg.VK.APIURL,
		APIVersion: cfg.VK.APIVersion,
		HTTPClient: opts.httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "creating VK client: %w", err)
	}

	groupID := cfg.VK.GroupID
	if groupID == 0 {
		id, name, err := client.Group(ctx)
		if err != nil {
			return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "resolving community from token: %w", err)
		}
		groupID = id
		logger.Info("resolved VK community", "group_id", id, "name", name)
	}

	tracker, err := gateway.NewHealthTracker(gateway.DefaultHealthCooldown)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "creating health tracker: %w", err)
	}
	gw := gateway.WithHealth(gateway.WithTimeout(client, cfg.VK.Timeout), tracker)

	g := guard.New(cfg.OwnerID, gw, guard.WithLogger(logger))
	// VK names the community in service actions by its negated group id.
	d := dispatch.New(dispatch.Config{BotID: -groupID}, st, g, gw, logger)

	lp := vk.NewLongPoll(client, groupID, vk.WithWait(cfg.VK.LongPollWait))
	lane := bot.NewLane("events", logger)
	runner := bot.NewRunner(lp, d, lane, logger)

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.ListenAddr(),
		CORSOrigins: cfg.Networking.CORSOrigins,
		Version:     version,
	})
	if err != nil {
		lane.Close()
		return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	services, err := server.NewServices(
		server.NewStatusSource(st, tracker, runnerStats{runner}),
		st.AuditLog(),
	)
	if err != nil {
		lane.Close()
		return nil, gkerr.Errorf(gkerr.CodeCLISetupFailure, "creating services: %w", err)
	}
	srv.RegisterServices(services)

	return &Bot{
		Store:      st,
		Client:     client,
		GroupID:    groupID,
		Health:     tracker,
		Dispatcher: d,
		Lane:       lane,
		Runner:     runner,
		Server:     srv,
	}, nil
}

// Run serves HTTP and consumes events until ctx is cancelled or either
// side fails.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() { firstErr = err })
		cancel()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		fail(b.Server.Start(ctx))
	}()
	go func() {
		defer wg.Done()
		fail(b.Runner.Run(ctx))
		// A runner that stops on its own takes the listener down with it.
		cancel()
	}()

	wg.Wait()
	return firstErr
}

// Close releases the lane and the store. Close is safe to call once Run
// has returned.
func (b *Bot) Close() error {
	b.Lane.Close()
	if err := b.Store.Close(); err != nil {
		return gkerr.Wrapf(err, gkerr.CodeStoreDatabaseFailure, "closing store")
	}
	return nil
}

type runnerStats struct{ r *bot.Runner }

func (s runnerStats) EventStats() server.EventStats {
	st := s.r.Stats()
	return server.EventStats{Received: st.Received, Failed: st.Failed}
}
