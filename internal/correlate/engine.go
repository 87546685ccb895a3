// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package correlate is the hit correlation engine. It pairs attack packets
// seen at the protocol level with the simulation's later damage
// notifications.
//
// Two producer contexts feed one shared marker set: the packet observer
// marks targets from the delivery context (resolution runs on its own
// workers) and the damage observer consumes marks from the serial damage
// loop.
package correlate

import (
	"context"
	"sync/atomic"

	"github.com/holomush/hitreg/internal/access"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/marker"
	"github.com/holomush/hitreg/internal/world"
)

// Engine wires the gate, the marker set and both observers together and
// exposes the administrative surface.
type Engine struct {
	gate    *gate.Gate
	marks   *marker.Set
	debug   atomic.Bool
	packets *PacketObserver
	damage  *DamageObserver
	chain   *DamageChain
}

// NewEngine creates an engine. The gate and marker set are owned by the
// caller and shared by reference with both observers.
func NewEngine(g *gate.Gate, marks *marker.Set, scanner world.Scanner, ac access.AccessControl, reporter Reporter, opts ...PacketOption) *Engine {
	e := &Engine{
		gate:  g,
		marks: marks,
	}
	e.packets = NewPacketObserver(g, marks, scanner, opts...)
	e.damage = NewDamageObserver(g, marks, ac, &e.debug, reporter)
	e.chain = NewDamageChain(e.damage)
	return e
}

// OnInteraction feeds a protocol interaction notification. Safe to call
// from any goroutine; never blocks on resolution.
func (e *Engine) OnInteraction(ctx context.Context, ev core.InteractionEvent) Disposition {
	return e.packets.Observe(ctx, ev)
}

// OnDamage feeds a damage notification through the listener chain. Must be
// called from a single goroutine (the damage loop).
func (e *Engine) OnDamage(ctx context.Context, ev core.DamageEvent) (core.Outcome, bool) {
	return e.chain.Dispatch(ctx, ev)
}

// AddDamageListener registers a listener that runs before correlation.
func (e *Engine) AddDamageListener(l DamageListener) {
	e.chain.Add(l)
}

// SetEnabled sets the gate's enabled flag.
func (e *Engine) SetEnabled(enabled bool) {
	e.gate.SetEnabled(enabled)
}

// ToggleEnabled flips the enabled flag and returns the new value.
func (e *Engine) ToggleEnabled() bool {
	return e.gate.Toggle()
}

// IsEnabled returns the gate's enabled flag.
func (e *Engine) IsEnabled() bool {
	return e.gate.Enabled()
}

// SetZoneActive adds or removes a zone from the active set and reports
// whether the set changed.
func (e *Engine) SetZoneActive(zone core.ZoneName, active bool) bool {
	return e.gate.SetZoneActive(zone, active)
}

// IsZoneActive reports whether zone is in the active set.
func (e *Engine) IsZoneActive(zone core.ZoneName) bool {
	return e.gate.HasZone(zone)
}

// ActiveZones returns the active zones, sorted.
func (e *Engine) ActiveZones() []core.ZoneName {
	return e.gate.ActiveZones()
}

// PendingMarkCount returns the number of unconsumed marks.
func (e *Engine) PendingMarkCount() int {
	return e.marks.Len()
}

// SetDebug sets the notification debug flag.
func (e *Engine) SetDebug(debug bool) {
	e.debug.Store(debug)
}

// ToggleDebug flips the debug flag and returns the new value.
func (e *Engine) ToggleDebug() bool {
	for {
		old := e.debug.Load()
		if e.debug.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Debug returns the notification debug flag.
func (e *Engine) Debug() bool {
	return e.debug.Load()
}

// Close stops the packet observer, waiting for in-flight resolutions, and
// then wipes every pending mark.
func (e *Engine) Close() {
	e.packets.Close()
	e.marks.Clear()
}
