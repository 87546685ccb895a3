// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holomush/hitreg/internal/command"
)

// writeOutput writes one line of command output. Write failures are logged
// and do not fail the command.
func writeOutput(ctx context.Context, exec *command.Execution, cmd, msg string) {
	if n, err := fmt.Fprintln(exec.Output, msg); err != nil {
		slog.WarnContext(ctx, "failed to write command output",
			"command", cmd,
			"sender", exec.Sender,
			"bytes_written", n,
			"error", err,
		)
	}
}

// writeOutputf is writeOutput with formatting; format must not end in a newline.
func writeOutputf(ctx context.Context, exec *command.Execution, cmd, format string, args ...any) {
	writeOutput(ctx, exec, cmd, fmt.Sprintf(format, args...))
}

// onOff renders a flag the way status lines show it.
func onOff(b bool) string {
	if b {
		return "ENABLED"
	}
	return "DISABLED"
}
