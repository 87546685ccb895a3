// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/holomush/hitreg/internal/command"
	"github.com/holomush/hitreg/internal/core"
)

// WorldUsage is the usage line for the world subcommand.
const WorldUsage = "world <list|add|remove> [world]"

// WorldHandler manages the enabled world list.
func WorldHandler(ctx context.Context, exec *command.Execution) error {
	fields := strings.Fields(exec.Args)
	if len(fields) == 0 {
		return command.ErrInvalidArgs("world", WorldUsage)
	}

	switch strings.ToLower(fields[0]) {
	case "list":
		return worldList(ctx, exec)
	case "add":
		if len(fields) != 2 {
			return command.ErrInvalidArgs("world", "world add <world>")
		}
		return worldAdd(ctx, exec, core.ZoneName(fields[1]))
	case "remove":
		if len(fields) != 2 {
			return command.ErrInvalidArgs("world", "world remove <world>")
		}
		return worldRemove(ctx, exec, core.ZoneName(fields[1]))
	default:
		return command.ErrUnknownSubcommand("world " + fields[0])
	}
}

func worldList(ctx context.Context, exec *command.Execution) error {
	writeOutput(ctx, exec, "world", "HitReg Enabled Worlds:")
	for _, z := range exec.Services.Engine.ActiveZones() {
		state := "(Not loaded)"
		if exec.Services.Worlds != nil && exec.Services.Worlds.IsLoaded(z) {
			state = "(Loaded)"
		}
		writeOutputf(ctx, exec, "world", "- %s %s", z, state)
	}
	return nil
}

func worldAdd(ctx context.Context, exec *command.Execution, zone core.ZoneName) error {
	if !exec.Services.Engine.SetZoneActive(zone, true) {
		return command.ErrWorldAlreadyEnabled(string(zone))
	}
	exec.Services.Persist()
	slog.InfoContext(ctx, "world enabled", "world", zone, "sender", exec.Sender)

	msg := "Added world '" + string(zone) + "' to enabled worlds list."
	if exec.Services.Worlds == nil || !exec.Services.Worlds.IsLoaded(zone) {
		msg += " Warning: This world isn't currently loaded."
	}
	writeOutput(ctx, exec, "world", msg)
	return nil
}

func worldRemove(ctx context.Context, exec *command.Execution, zone core.ZoneName) error {
	if !exec.Services.Engine.SetZoneActive(zone, false) {
		return command.ErrWorldNotEnabled(string(zone))
	}
	exec.Services.Persist()
	slog.InfoContext(ctx, "world disabled", "world", zone, "sender", exec.Sender)

	writeOutputf(ctx, exec, "world", "Removed world '%s' from enabled worlds list.", zone)
	return nil
}
