// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridkeeper/gridkeeper/internal/server"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

const defaultStatusAddress = "127.0.0.1:10000"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show running bot status",
		Long:  "Query the running bot's status endpoint and print grid size, ban count, gateway health and event counters.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultStatusAddress, "bot listener address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var st server.Status
	if err := newBotClient(addr).getJSON("/api/v1/status", &st); err != nil {
		if gkerr.HasCode(err, gkerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Bot at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Bot at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Bot at %s: %s\n", addr, st.Status)
	_, _ = fmt.Fprintf(out, "  chats:   %d\n", st.Chats)
	_, _ = fmt.Fprintf(out, "  bans:    %d\n", st.Bans)
	_, _ = fmt.Fprintf(out, "  events:  %d received, %d failed\n", st.Events.Received, st.Events.Failed)
	_, _ = fmt.Fprintf(out, "  gateway: %d calls, %d failures", st.Gateway.CallCount, st.Gateway.FailureCount)
	if st.Gateway.LastReason != "" {
		_, _ = fmt.Fprintf(out, " (last: %s)", st.Gateway.LastReason)
	}
	_, _ = fmt.Fprintln(out)
	return nil
}
