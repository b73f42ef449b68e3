// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridkeeper/gridkeeper/internal/store"
)

func newBansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bans",
		Short: "Inspect and edit the global ban list offline",
		Long: `List, add or remove banned users directly in the database.

Adding a ban here does not remove the user from chats they are already in;
the running bot removes them the next time they join. Use the /ban chat
command for an immediate grid-wide removal.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List banned user ids",
			Args:  cobra.NoArgs,
			RunE:  runBansList,
		},
		&cobra.Command{
			Use:   "add <user_id>",
			Short: "Ban a user across the grid",
			Args:  cobra.ExactArgs(1),
			RunE:  runBansAdd,
		},
		&cobra.Command{
			Use:   "remove <user_id>",
			Short: "Lift a global ban",
			Args:  cobra.ExactArgs(1),
			RunE:  runBansRemove,
		},
	)

	return cmd
}

func runBansList(cmd *cobra.Command, _ []string) error {
	return withStore(func(st store.ModerationStore) error {
		bans, err := st.Bans().List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(bans) == 0 {
			_, _ = fmt.Fprintln(out, "No banned users.")
			return nil
		}
		for _, id := range bans {
			_, _ = fmt.Fprintf(out, "%d\n", id)
		}
		return nil
	})
}

func runBansAdd(cmd *cobra.Command, args []string) error {
	userID, err := parseUserArg(args[0])
	if err != nil {
		return err
	}
	return withStore(func(st store.ModerationStore) error {
		added, err := st.Bans().Add(cmd.Context(), userID)
		if err != nil {
			return err
		}
		auditCLI(cmd.Context(), st, "ban", 0, userID, resultOf(added, "added", "present"))
		if added {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %d banned.\n", userID)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %d is already banned.\n", userID)
		}
		return nil
	})
}

func runBansRemove(cmd *cobra.Command, args []string) error {
	userID, err := parseUserArg(args[0])
	if err != nil {
		return err
	}
	return withStore(func(st store.ModerationStore) error {
		removed, err := st.Bans().Remove(cmd.Context(), userID)
		if err != nil {
			return err
		}
		auditCLI(cmd.Context(), st, "unban", 0, userID, resultOf(removed, "removed", "absent"))
		if removed {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %d unbanned.\n", userID)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %d was not banned.\n", userID)
		}
		return nil
	})
}
