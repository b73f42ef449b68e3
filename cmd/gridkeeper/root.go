// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridkeeper/gridkeeper/internal/config"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// NewRootCmd creates the root gridkeeper command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gridkeeper",
		Short:         "Gridkeeper, VK chat-network moderation bot",
		Long:          "Gridkeeper moderates a network of VK group chats: bans apply across the whole grid, silence mode deletes messages from regular members.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("db", "", "path to the sqlite database (overrides storage.path)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newStatusCmd(),
		newGridCmd(),
		newBansCmd(),
		newAuditCmd(),
		newSecretCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper prepares the global Viper so precedence is flag > env > file >
// defaults. It resets the instance first; Execute may run more than once
// per process in tests.
func initViper(cmd *cobra.Command) error {
	viper.Reset()
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return gkerr.Errorf(gkerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted on purpose: with it set, viper also tries
		// the bare name, which matches the ./gridkeeper binary.
		v.SetConfigName("gridkeeper")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gridkeeper")
		v.AddConfigPath("/etc/gridkeeper")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return gkerr.Errorf(gkerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// Defaults and env still apply without a file.
		}
	}

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return gkerr.Errorf(gkerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		v.Set("storage.path", db)
	}

	config.WarnInsecurePermissions(v.ConfigFileUsed())
	return nil
}

// loadConfig decodes the global Viper. Validation is left to the caller.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}
