// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridkeeper/gridkeeper/internal/secrets"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. Tests substitute a mock.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// resolveSecrets replaces keyring:// references in v with their values.
func resolveSecrets(v *viper.Viper) error {
	return secrets.ResolveViperSecrets(v, secretStoreFactory())
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long:  "Set, list and delete secrets stored under the gridkeeper service in the operating system keyring.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [name]",
		Short: "Store a secret read from stdin",
		Long:  "Read a single line from stdin and store it under name (default " + secrets.TokenKey + "). Reference it from config as keyring://" + secrets.DefaultService + "/<name>.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSecretSet,
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored secret names",
		RunE:  runSecretList,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := secrets.TokenKey
	if len(args) == 1 {
		name = args[0]
	}

	sc := bufio.NewScanner(cmd.InOrStdin())
	var value string
	if sc.Scan() {
		value = strings.TrimSpace(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return gkerr.Errorf(gkerr.CodeCLIInputInvalid, "reading secret from stdin: %w", err)
	}
	if value == "" {
		return gkerr.New(gkerr.CodeCLIInputInvalid, "secret value must not be empty")
	}

	if err := secretStoreFactory().Store(secrets.DefaultService, name, value); err != nil {
		return gkerr.Errorf(gkerr.CodeSecretStoreFailure, "storing secret %q: %w", name, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret: %s (keyring://%s/%s)\n", name, secrets.DefaultService, name)
	return nil
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.DefaultService)
	if err != nil {
		return gkerr.Errorf(gkerr.CodeSecretListFailure, "listing secrets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored.")
		return nil
	}

	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := secretStoreFactory().Delete(secrets.DefaultService, name); err != nil {
		if gkerr.HasCode(err, gkerr.CodeSecretNotFound) {
			return gkerr.Errorf(gkerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return gkerr.Errorf(gkerr.CodeSecretDeleteFailure, "deleting secret %q: %w", name, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
