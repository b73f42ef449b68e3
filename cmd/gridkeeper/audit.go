// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the moderation audit trail",
		Long:  "Print moderation actions such as bans, kicks and grid changes in chronological order. Page with --limit and --offset.",
		Args:  cobra.NoArgs,
		RunE:  runAudit,
	}

	cmd.Flags().String("action", "", "only show entries with this action (e.g. ban, kick_all, chat.add)")
	cmd.Flags().Int64("target", 0, "only show entries targeting this user id")
	cmd.Flags().Int("limit", 50, "maximum number of entries")
	cmd.Flags().Int("offset", 0, "number of entries to skip")

	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	action, _ := cmd.Flags().GetString("action")
	target, _ := cmd.Flags().GetInt64("target")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	if limit <= 0 {
		return gkerr.Errorf(gkerr.CodeCLIInputInvalid, "--limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return gkerr.Errorf(gkerr.CodeCLIInputInvalid, "--offset must not be negative, got %d", offset)
	}

	return withStore(func(st store.ModerationStore) error {
		entries, err := st.AuditLog().Query(cmd.Context(), store.AuditFilter{
			Action:   action,
			TargetID: target,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, "No audit entries.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TIME\tACTION\tACTOR\tCHAT\tTARGET\tRESULT")
		for _, e := range entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Local().Format(time.DateTime),
				e.Action,
				idOrDash(e.ActorID),
				idOrDash(e.ChatID),
				idOrDash(e.TargetID),
				e.Result)
		}
		return tw.Flush()
	})
}

func idOrDash(id int64) string {
	if id == 0 {
		return "-"
	}
	return fmt.Sprint(id)
}
