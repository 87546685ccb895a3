// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/hitreg/internal/config"
)

// NewRootCmd creates the root command for the hitreg CLI.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "hitreg",
		Short: "hitreg - packet-verified hit registration",
		Long: `hitreg correlates attack interactions seen at the packet layer with
the damage the game server applies, and tells attackers which hits were
verified by a packet.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/hitreg/"+config.FileName+")")

	cmd.AddCommand(newServeCmd(&configFile))
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// resolveConfigPath returns flagValue or the XDG default.
func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultPath()
}
