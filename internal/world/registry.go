// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world tracks the live entities of every loaded zone so that
// transient protocol handles can be resolved to stable identities.
package world

import (
	"slices"
	"sync"

	"github.com/samber/oops"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/holomush/hitreg/internal/core"
)

// Entity is a live participant as seen in one zone snapshot.
type Entity struct {
	ID     core.ActorID
	Kind   core.ActorKind
	Handle core.Handle
}

// Scanner iterates the live entities of a zone.
type Scanner interface {
	// Each calls fn for every live entity in zone until fn returns false.
	// Unknown zones yield nothing.
	Each(zone core.ZoneName, fn func(Entity) bool)
}

var identity = donburi.NewComponentType[Entity]()

// placement records where an entity currently lives.
type placement struct {
	zone   core.ZoneName
	entity donburi.Entity
}

// Registry holds one ECS world per loaded zone.
//
// donburi worlds are not safe for concurrent use, so every access, scans
// included, holds mu.
type Registry struct {
	mu     sync.Mutex
	zones  map[core.ZoneName]donburi.World
	placed map[core.ActorID]placement
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		zones:  make(map[core.ZoneName]donburi.World),
		placed: make(map[core.ActorID]placement),
	}
}

// LoadZone marks zone as loaded. Loading an already loaded zone is a no-op.
func (r *Registry) LoadZone(zone core.ZoneName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked(zone)
}

func (r *Registry) loadLocked(zone core.ZoneName) donburi.World {
	w, ok := r.zones[zone]
	if !ok {
		w = donburi.NewWorld()
		r.zones[zone] = w
	}
	return w
}

// UnloadZone drops zone and every entity in it.
func (r *Registry) UnloadZone(zone core.ZoneName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.zones[zone]; !ok {
		return
	}
	delete(r.zones, zone)
	for id, p := range r.placed {
		if p.zone == zone {
			delete(r.placed, id)
		}
	}
}

// IsLoaded reports whether zone is currently loaded.
func (r *Registry) IsLoaded(zone core.ZoneName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.zones[zone]
	return ok
}

// Zones returns the loaded zones, sorted.
func (r *Registry) Zones() []core.ZoneName {
	r.mu.Lock()
	out := make([]core.ZoneName, 0, len(r.zones))
	for z := range r.zones {
		out = append(out, z)
	}
	r.mu.Unlock()

	slices.Sort(out)
	return out
}

// Spawn places e in zone, loading the zone if needed. Spawning an id that is
// already live elsewhere moves it.
func (r *Registry) Spawn(zone core.ZoneName, e Entity) error {
	if e.ID.IsZero() {
		return oops.Code("INVALID_ENTITY").With("zone", string(zone)).Errorf("entity id is required")
	}
	if zone == "" {
		return oops.Code("INVALID_ZONE").With("entity", e.ID.String()).Errorf("zone is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawnLocked(zone, e)
	return nil
}

func (r *Registry) spawnLocked(zone core.ZoneName, e Entity) {
	r.removeLocked(e.ID)

	w := r.loadLocked(zone)
	entity := w.Create(identity)
	identity.Set(w.Entry(entity), &e)
	r.placed[e.ID] = placement{zone: zone, entity: entity}
}

// Move relocates a live entity to zone under a new handle.
func (r *Registry) Move(id core.ActorID, zone core.ZoneName, handle core.Handle) error {
	if zone == "" {
		return oops.Code("INVALID_ZONE").With("entity", id.String()).Errorf("zone is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.placed[id]
	if !ok {
		return oops.Code("UNKNOWN_ENTITY").With("entity", id.String()).Errorf("entity is not live")
	}
	var kind core.ActorKind
	if w, loaded := r.zones[p.zone]; loaded && w.Valid(p.entity) {
		kind = identity.Get(w.Entry(p.entity)).Kind
	}
	r.spawnLocked(zone, Entity{ID: id, Kind: kind, Handle: handle})
	return nil
}

// Despawn removes id and reports whether it was live.
func (r *Registry) Despawn(id core.ActorID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id core.ActorID) bool {
	p, ok := r.placed[id]
	if !ok {
		return false
	}
	delete(r.placed, id)
	if w, loaded := r.zones[p.zone]; loaded && w.Valid(p.entity) {
		w.Remove(p.entity)
	}
	return true
}

// Lookup returns the live entity for id and its zone.
func (r *Registry) Lookup(id core.ActorID) (Entity, core.ZoneName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.placed[id]
	if !ok {
		return Entity{}, "", false
	}
	w, loaded := r.zones[p.zone]
	if !loaded || !w.Valid(p.entity) {
		return Entity{}, "", false
	}
	return *identity.Get(w.Entry(p.entity)), p.zone, true
}

// Each implements Scanner.
func (r *Registry) Each(zone core.ZoneName, fn func(Entity) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.zones[zone]
	if !ok {
		return
	}

	stopped := false
	donburi.NewQuery(filter.Contains(identity)).Each(w, func(entry *donburi.Entry) {
		if stopped {
			return
		}
		if !fn(*identity.Get(entry)) {
			stopped = true
		}
	})
}

// Count returns the number of live entities in zone.
func (r *Registry) Count(zone core.ZoneName) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.zones[zone]
	if !ok {
		return 0
	}
	return donburi.NewQuery(filter.Contains(identity)).Count(w)
}

// Resolve finds the entity holding handle in zone by scanning the zone's
// live population. Handles are snapshot-scoped, so no index is kept.
func Resolve(s Scanner, zone core.ZoneName, handle core.Handle) (Entity, bool) {
	var found Entity
	ok := false
	s.Each(zone, func(e Entity) bool {
		if e.Handle == handle {
			found, ok = e, true
			return false
		}
		return true
	})
	return found, ok
}
