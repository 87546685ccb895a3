// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package marker holds the attack marker set shared by the packet-side and
// damage-side observers.
package marker

import (
	"sync"

	"github.com/holomush/hitreg/internal/core"
)

// Set is a concurrency-safe set of attacked targets.
//
// Membership for an id is a single bit: Mark sets it, TestAndClear consumes
// it. Both run under the same lock, so TestAndClear is linearizable against
// concurrent Mark calls on the same id. Marks never expire.
type Set struct {
	mu      sync.Mutex
	members map[core.ActorID]struct{}
}

// New creates an empty marker set.
func New() *Set {
	return &Set{
		members: make(map[core.ActorID]struct{}),
	}
}

// Mark records that id was attacked at the packet level. Idempotent.
func (s *Set) Mark(id core.ActorID) {
	s.mu.Lock()
	s.members[id] = struct{}{}
	s.mu.Unlock()
}

// TestAndClear removes id and reports whether it was present.
func (s *Set) TestAndClear(id core.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	return true
}

// Clear removes every mark.
func (s *Set) Clear() {
	s.mu.Lock()
	clear(s.members)
	s.mu.Unlock()
}

// Len returns the number of pending marks.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}
