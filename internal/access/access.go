// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access provides authorization for HitReg.
//
// All parameters use prefixed string format:
//   - subject: "player:01ABC", "console"
//   - action: "execute", "receive"
//   - resource: "command:hitreg", "notify:hitreg"
package access

import (
	"context"
	"strings"

	"github.com/holomush/hitreg/internal/core"
)

// Subject prefixes and well-known subjects.
const (
	SubjectPlayer  = "player:"
	SubjectConsole = "console"
)

// Actions and resources checked by HitReg.
const (
	ActionExecute   = "execute"
	ActionReceive   = "receive"
	ResourceCommand = "command:hitreg"
	ResourceNotify  = "notify:hitreg"
)

// AccessControl checks permissions for all subjects.
//
//nolint:revive // Name kept for consistency with callers across packages
type AccessControl interface {
	// Check returns true if subject is allowed to perform action on resource.
	// Returns false for unknown subjects or denied permissions (deny by default).
	Check(ctx context.Context, subject, action, resource string) bool
}

// PlayerSubject returns the subject string for a player.
func PlayerSubject(id core.ActorID) string {
	return SubjectPlayer + id.String()
}

// ParseSubject splits a subject string into prefix and ID.
// Returns ("console", "") for "console".
// Returns ("", subject) if no colon separator found.
func ParseSubject(subject string) (prefix, id string) {
	if subject == "" {
		return "", ""
	}
	if subject == SubjectConsole {
		return SubjectConsole, ""
	}
	parts := strings.SplitN(subject, ":", 2)
	if len(parts) == 1 {
		return "", subject
	}
	return parts[0], parts[1]
}
