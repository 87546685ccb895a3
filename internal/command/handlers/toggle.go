// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"log/slog"

	"github.com/holomush/hitreg/internal/command"
)

// ToggleHandler flips the master switch and persists the new value.
// Pending marks are left untouched.
func ToggleHandler(ctx context.Context, exec *command.Execution) error {
	enabled := exec.Services.Engine.ToggleEnabled()
	exec.Services.Persist()

	slog.InfoContext(ctx, "hit registration toggled", "enabled", enabled, "sender", exec.Sender)
	writeOutputf(ctx, exec, "toggle", "HitReg packet listener has been %s.", onOff(enabled))
	return nil
}

// DebugHandler flips the notification debug flag and persists it.
func DebugHandler(ctx context.Context, exec *command.Execution) error {
	debug := exec.Services.Engine.ToggleDebug()
	exec.Services.Persist()

	slog.InfoContext(ctx, "debug mode toggled", "debug", debug, "sender", exec.Sender)
	writeOutputf(ctx, exec, "debug", "HitReg debug mode %s", onOff(debug))
	return nil
}
