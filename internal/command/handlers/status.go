// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"strings"

	"github.com/holomush/hitreg/internal/command"
	"github.com/holomush/hitreg/internal/core"
)

// StatusHandler reports the gate, debug flag, zones and pending marks.
func StatusHandler(ctx context.Context, exec *command.Execution) error {
	eng := exec.Services.Engine
	writeOutput(ctx, exec, "status", "HitReg Status:")
	writeOutputf(ctx, exec, "status", "Packet listening: %s", onOff(eng.IsEnabled()))
	writeOutputf(ctx, exec, "status", "Debug mode: %s", onOff(eng.Debug()))
	writeOutputf(ctx, exec, "status", "Enabled worlds: %s", joinZones(eng.ActiveZones()))
	writeOutputf(ctx, exec, "status", "Tracked recent attacks: %d", eng.PendingMarkCount())
	return nil
}

// HelpHandler lists the registered subcommands.
func HelpHandler(reg *command.Registry) command.Handler {
	return func(ctx context.Context, exec *command.Execution) error {
		header := "HitReg"
		if v := exec.Services.Version; v != "" {
			header += " v" + v
		}
		writeOutput(ctx, exec, "help", header)
		for _, e := range reg.All() {
			if e.Name == command.HelpCommand {
				continue
			}
			writeOutputf(ctx, exec, "help", "/hitreg %s - %s", e.Usage, e.Help)
		}
		return nil
	}
}

func joinZones(zones []core.ZoneName) string {
	names := make([]string, len(zones))
	for i, z := range zones {
		names[i] = string(z)
	}
	return strings.Join(names, ", ")
}
