// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridkeeper/gridkeeper/internal/config"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the moderation bot",
		Long:  "Load configuration, open the database, connect to VK Long Poll and serve the health/status listener until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().Int("port", 0, "override networking.port")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		v.Set("networking.port", port)
	}
	if err := resolveSecrets(v); err != nil {
		// Required() reports an unresolved token; other keys are best-effort.
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if errs := append(cfg.Validate(), cfg.Required()...); len(errs) > 0 {
		return gkerr.Errorf(gkerr.CodeConfigValidateInvalidValue, "invalid configuration: %w", errors.Join(errs...))
	}

	logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr(), v.GetBool("verbose"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := WireBot(ctx, cfg, logger, wireOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("closing bot", "error", err)
		}
	}()

	logger.Info("gridkeeper started",
		"version", version,
		"group_id", b.GroupID,
		"owner_id", cfg.OwnerID,
		"listen", cfg.Networking.ListenAddr(),
		"db", cfg.Storage.Path)

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("gridkeeper stopped")
	return nil
}
