// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger. verbose forces debug.
func NewLogger(cfg LogConfig, w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
