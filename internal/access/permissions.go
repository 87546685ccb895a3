// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

import "slices"

// Role names accepted in the roles table.
const (
	RolePlayer    = "player"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

var (
	// debug output of the correlation engine
	notifyGrants = []string{"receive:notify:hitreg"}

	// every command, rate limit bypass, any notification
	operatorGrants = []string{
		"execute:command:*",
		"execute:ratelimit:*",
		"receive:**",
	}
)

// DefaultRoles returns the built-in role table. Players hold no grants
// and only see the messages sent to them directly.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RolePlayer:    {},
		RoleModerator: slices.Clone(notifyGrants),
		RoleAdmin:     slices.Concat(notifyGrants, operatorGrants),
	}
}
