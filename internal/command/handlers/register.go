// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package handlers implements the built-in hitreg subcommands.
package handlers

import (
	"github.com/holomush/hitreg/internal/command"
)

// RegisterAll registers every built-in subcommand with the registry.
// Panics if any registration fails (indicates a programming error).
func RegisterAll(reg *command.Registry) {
	mustRegister := func(entry command.Entry) {
		if err := reg.Register(entry); err != nil {
			panic("failed to register command " + entry.Name + ": " + err.Error())
		}
	}

	mustRegister(command.Entry{
		Name:    command.HelpCommand,
		Handler: HelpHandler(reg),
		Help:    "List subcommands",
		Usage:   "help",
	})
	mustRegister(command.Entry{
		Name:    "toggle",
		Handler: ToggleHandler,
		Help:    "Toggle packet hit registration on/off",
		Usage:   "toggle",
	})
	mustRegister(command.Entry{
		Name:    "debug",
		Handler: DebugHandler,
		Help:    "Toggle debug notifications",
		Usage:   "debug",
	})
	mustRegister(command.Entry{
		Name:    "status",
		Handler: StatusHandler,
		Help:    "Show current status",
		Usage:   "status",
	})
	mustRegister(command.Entry{
		Name:    "world",
		Handler: WorldHandler,
		Help:    "List, add or remove enabled worlds",
		Usage:   WorldUsage,
	})
}
