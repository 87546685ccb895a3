// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package gate decides whether hit correlation is engaged for a zone.
package gate

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/holomush/hitreg/internal/core"
)

// Gate holds the enabled flag and the active zone allow-list.
//
// Readers may observe a slightly stale value; writes come from administrative
// commands and config load only.
type Gate struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	zones   map[core.ZoneName]struct{}
}

// New creates a gate with the given initial state.
func New(enabled bool, zones ...core.ZoneName) *Gate {
	g := &Gate{
		zones: make(map[core.ZoneName]struct{}, len(zones)),
	}
	g.enabled.Store(enabled)
	for _, z := range zones {
		g.zones[z] = struct{}{}
	}
	return g
}

// IsActive reports whether correlation is enabled and zone is active.
func (g *Gate) IsActive(zone core.ZoneName) bool {
	return g.Enabled() && g.HasZone(zone)
}

// Enabled returns the enabled flag.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetEnabled sets the enabled flag. Pending marks are not touched.
func (g *Gate) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

// Toggle flips the enabled flag and returns the new value.
func (g *Gate) Toggle() bool {
	for {
		old := g.enabled.Load()
		if g.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// HasZone reports whether zone is in the active set, regardless of the
// enabled flag.
func (g *Gate) HasZone(zone core.ZoneName) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.zones[zone]
	return ok
}

// SetZoneActive adds or removes zone from the active set and reports whether
// the set changed.
func (g *Gate) SetZoneActive(zone core.ZoneName, active bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, present := g.zones[zone]
	switch {
	case active && !present:
		g.zones[zone] = struct{}{}
		return true
	case !active && present:
		delete(g.zones, zone)
		return true
	default:
		return false
	}
}

// ReplaceZones swaps the whole active set, as done on config load.
func (g *Gate) ReplaceZones(zones []core.ZoneName) {
	next := make(map[core.ZoneName]struct{}, len(zones))
	for _, z := range zones {
		next[z] = struct{}{}
	}
	g.mu.Lock()
	g.zones = next
	g.mu.Unlock()
}

// ActiveZones returns a sorted copy of the active set.
func (g *Gate) ActiveZones() []core.ZoneName {
	g.mu.RLock()
	out := make([]core.ZoneName, 0, len(g.zones))
	for z := range g.zones {
		out = append(out, z)
	}
	g.mu.RUnlock()

	slices.Sort(out)
	return out
}
