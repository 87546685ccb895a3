// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"github.com/samber/oops"
)

// Error codes for command dispatch failures.
const (
	CodeEmptyInput          = "EMPTY_INPUT"
	CodeUnknownSubcommand   = "UNKNOWN_SUBCOMMAND"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeInvalidArgs         = "INVALID_ARGS"
	CodeWorldAlreadyEnabled = "WORLD_ALREADY_ENABLED"
	CodeWorldNotEnabled     = "WORLD_NOT_ENABLED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeNilServices         = "NIL_SERVICES"
)

// Sentinel construction errors.
var (
	ErrNilRegistry      = oops.Code("NIL_REGISTRY").Errorf("command registry is required")
	ErrNilAccessControl = oops.Code("NIL_ACCESS_CONTROL").Errorf("access control is required")
)

// ErrUnknownSubcommand creates an error for an unknown subcommand.
func ErrUnknownSubcommand(cmd string) error {
	return oops.Code(CodeUnknownSubcommand).
		With("command", cmd).
		Errorf("unknown subcommand: %s", cmd)
}

// ErrPermissionDenied creates an error for permission denial.
func ErrPermissionDenied(cmd, sender string) error {
	return oops.Code(CodePermissionDenied).
		With("command", cmd).
		With("sender", sender).
		Errorf("permission denied for command %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrWorldAlreadyEnabled reports an add for a zone already in the list.
func ErrWorldAlreadyEnabled(world string) error {
	return oops.Code(CodeWorldAlreadyEnabled).
		With("world", world).
		Errorf("world %q is already enabled", world)
}

// ErrWorldNotEnabled reports a remove for a zone not in the list.
func ErrWorldNotEnabled(world string) error {
	return oops.Code(CodeWorldNotEnabled).
		With("world", world).
		Errorf("world %q is not enabled", world)
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("Too many commands. Please slow down.")
}

// ErrNilServices reports an execution without services attached.
func ErrNilServices() error {
	return oops.Code(CodeNilServices).Errorf("command execution has no services")
}

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	switch oopsErr.Code() {
	case CodeEmptyInput, CodeUnknownSubcommand:
		return "Unknown subcommand. Use 'help' for a list."
	case CodePermissionDenied:
		return "You don't have permission to use this command."
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	case CodeWorldAlreadyEnabled:
		if w, ok := oopsErr.Context()["world"].(string); ok {
			return "World '" + w + "' is already enabled."
		}
		return "That world is already enabled."
	case CodeWorldNotEnabled:
		if w, ok := oopsErr.Context()["world"].(string); ok {
			return "World '" + w + "' is not in the enabled list."
		}
		return "That world is not in the enabled list."
	case CodeRateLimited:
		return "Too many commands. Please slow down."
	default:
		return "Something went wrong. Try again."
	}
}
