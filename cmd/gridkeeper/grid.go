// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridkeeper/gridkeeper/internal/store"
)

func newGridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Inspect and edit grid membership offline",
		Long:  "List, add or remove grid chats directly in the database. Use while the bot is stopped, or accept that sqlite serializes writers.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List grid chat ids",
			Args:  cobra.NoArgs,
			RunE:  runGridList,
		},
		&cobra.Command{
			Use:   "add <chat_id>",
			Short: "Add a chat to the grid",
			Args:  cobra.ExactArgs(1),
			RunE:  runGridAdd,
		},
		&cobra.Command{
			Use:   "remove <chat_id>",
			Short: "Remove a chat from the grid",
			Args:  cobra.ExactArgs(1),
			RunE:  runGridRemove,
		},
	)

	return cmd
}

func runGridList(cmd *cobra.Command, _ []string) error {
	return withStore(func(st store.ModerationStore) error {
		chats, err := st.Chats().List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(chats) == 0 {
			_, _ = fmt.Fprintln(out, "No chats in the grid.")
			return nil
		}
		for _, id := range chats {
			silenced, err := st.Settings().GetSilence(cmd.Context(), id)
			if err != nil {
				return err
			}
			if silenced {
				_, _ = fmt.Fprintf(out, "%d\tsilenced\n", id)
				continue
			}
			_, _ = fmt.Fprintf(out, "%d\n", id)
		}
		return nil
	})
}

func runGridAdd(cmd *cobra.Command, args []string) error {
	chatID, err := parseChatArg(args[0])
	if err != nil {
		return err
	}
	return withStore(func(st store.ModerationStore) error {
		added, err := st.Chats().Add(cmd.Context(), chatID)
		if err != nil {
			return err
		}
		auditCLI(cmd.Context(), st, "chat.add", chatID, 0, resultOf(added, "added", "present"))
		if added {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chat %d added to the grid.\n", chatID)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chat %d is already in the grid.\n", chatID)
		}
		return nil
	})
}

func runGridRemove(cmd *cobra.Command, args []string) error {
	chatID, err := parseChatArg(args[0])
	if err != nil {
		return err
	}
	return withStore(func(st store.ModerationStore) error {
		removed, err := st.Chats().Remove(cmd.Context(), chatID)
		if err != nil {
			return err
		}
		auditCLI(cmd.Context(), st, "chat.remove", chatID, 0, resultOf(removed, "removed", "absent"))
		if removed {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chat %d removed from the grid.\n", chatID)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chat %d is not in the grid.\n", chatID)
		}
		return nil
	})
}
