// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/gridkeeper/gridkeeper/internal/config"
	"github.com/gridkeeper/gridkeeper/internal/server"
	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, required settings, database, disk space and whether a bot is running.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", defaultStatusAddress, "bot listener address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")

	cfg, cfgErr := loadConfig()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", checkConfig},
		{"Settings", func() string { return checkSettings(cfg, cfgErr) }},
		{"Database", func() string { return checkDatabase(cmd.Context(), cfg) }},
		{"Disk Space", func() string { return checkDiskSpace(cfg) }},
		{"Bot", func() string { return checkBot(addr) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("gridkeeper %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig() string {
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkSettings(cfg *config.Config, loadErr error) string {
	if loadErr != nil {
		return fmt.Sprintf("error: %s", loadErr)
	}
	errs := append(cfg.Validate(), cfg.Required()...)
	switch len(errs) {
	case 0:
		return "ok"
	case 1:
		return errs[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", errs[0], len(errs)-1)
	}
}

func checkDatabase(ctx context.Context, cfg *config.Config) string {
	if cfg == nil {
		return "skipped (config did not load)"
	}
	if _, err := os.Stat(cfg.Storage.Path); os.IsNotExist(err) {
		return fmt.Sprintf("not created yet at %s", cfg.Storage.Path)
	}

	st, err := store.NewModerationStore(&store.StorageConfig{Backend: cfg.Storage.Backend}, cfg.Storage.Path)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	defer func() { _ = st.Close() }()

	chats, err := st.Chats().Count(ctx)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	bans, err := st.Bans().Count(ctx)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s (%d chats, %d bans)", cfg.Storage.Path, chats, bans)
}

func checkDiskSpace(cfg *config.Config) string {
	path := "."
	if cfg != nil {
		path = filepath.Dir(cfg.Storage.Path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

func checkBot(addr string) string {
	var st server.Status
	if err := newBotClient(addr).getJSON("/api/v1/status", &st); err != nil {
		if gkerr.HasCode(err, gkerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'gridkeeper start')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", st.Status, addr)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
