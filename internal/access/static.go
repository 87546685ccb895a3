// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// grantSet is the compiled permission list of one role. A request
// "action:resource" is permitted when any pattern matches it.
type grantSet []glob.Glob

func (g grantSet) permits(requested string) bool {
	for _, pattern := range g {
		if pattern.Match(requested) {
			return true
		}
	}
	return false
}

// StaticAccessControl resolves subjects to fixed roles. The role table
// never changes after construction; only role assignments do.
type StaticAccessControl struct {
	roles map[string]grantSet

	mu       sync.RWMutex
	assigned map[string]string
}

// NewStaticAccessControl builds a controller over DefaultRoles. It panics
// when a built-in pattern does not compile.
func NewStaticAccessControl() *StaticAccessControl {
	ac, err := NewStaticAccessControlWithRoles(DefaultRoles())
	if err != nil {
		panic("access: default roles: " + err.Error())
	}
	return ac
}

// NewStaticAccessControlWithRoles compiles roles, a map of role name to
// permission patterns using ':' as the segment separator.
func NewStaticAccessControlWithRoles(roles map[string][]string) (*StaticAccessControl, error) {
	compiled := make(map[string]grantSet, len(roles))
	for name, patterns := range roles {
		set := make(grantSet, len(patterns))
		for i, p := range patterns {
			g, err := glob.Compile(p, ':')
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("role", name).
					With("pattern", p).
					Wrap(err)
			}
			set[i] = g
		}
		compiled[name] = set
	}
	return &StaticAccessControl{roles: compiled, assigned: map[string]string{}}, nil
}

// Check implements AccessControl.
func (s *StaticAccessControl) Check(_ context.Context, subject, action, resource string) bool {
	switch subject {
	case SubjectConsole:
		return true
	case "":
		return false
	}

	role := s.GetRole(subject)
	if role == "" {
		return false
	}
	requested := action + ":" + resource
	if s.roles[role].permits(requested) {
		return true
	}
	slog.Debug("permission denied", "subject", subject, "role", role, "requested", requested)
	return false
}

func (s *StaticAccessControl) validate(subject, role string) error {
	errb := oops.In("access")
	switch {
	case subject == "":
		return errb.Code("INVALID_SUBJECT").New("subject cannot be empty")
	case role == "":
		return errb.Code("INVALID_ROLE").With("subject", subject).New("role cannot be empty")
	}
	if _, ok := s.roles[role]; !ok {
		return errb.Code("UNKNOWN_ROLE").With("subject", subject).With("role", role).New("unknown role")
	}
	return nil
}

// AssignRole gives subject the named role, replacing any previous one.
func (s *StaticAccessControl) AssignRole(subject, role string) error {
	return s.AssignRoles(map[string]string{subject: role})
}

// AssignRoles applies a subject to role table. Either every entry is
// valid and applied, or nothing changes.
func (s *StaticAccessControl) AssignRoles(assignments map[string]string) error {
	for subject, role := range assignments {
		if err := s.validate(subject, role); err != nil {
			return err
		}
	}
	s.mu.Lock()
	maps.Copy(s.assigned, assignments)
	s.mu.Unlock()
	return nil
}

// RevokeRole drops the role held by subject, if any.
func (s *StaticAccessControl) RevokeRole(subject string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}
	s.mu.Lock()
	delete(s.assigned, subject)
	s.mu.Unlock()
	return nil
}

// GetRole returns the role held by subject, or "".
func (s *StaticAccessControl) GetRole(subject string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assigned[subject]
}
