// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"github.com/holomush/hitreg/internal/core"
)

// ProtocolVersion is the bridge protocol version this server speaks.
const ProtocolVersion = "1.0.0"

// DefaultProtocolConstraint is the range of bridge versions accepted.
const DefaultProtocolConstraint = "^1"

// Frame types, bridge to hitreg.
const (
	TypeHello    = "hello"
	TypeSpawn    = "spawn"
	TypeDespawn  = "despawn"
	TypeMove     = "move"
	TypeZone     = "zone"
	TypeInteract = "interact"
	TypeDamage   = "damage"
	TypeCommand  = "command"
)

// Frame types, hitreg to bridge.
const (
	TypeWelcome       = "welcome"
	TypeMessage       = "message"
	TypeCommandResult = "command_result"
	TypeError         = "error"
)

// envelope is decoded first to pick the concrete frame type.
type envelope struct {
	Type string `json:"type"`
}

// HelloFrame opens a bridge session.
type HelloFrame struct {
	Type     string `json:"type"`
	Protocol string `json:"protocol"`
	Server   string `json:"server,omitempty"`
}

// WelcomeFrame acknowledges a hello.
type WelcomeFrame struct {
	Type     string   `json:"type"`
	Protocol string   `json:"protocol"`
	Enabled  bool     `json:"enabled"`
	Zones    []string `json:"zones"`
}

// SpawnFrame announces a live entity and its current handle.
type SpawnFrame struct {
	Type   string        `json:"type"`
	ID     core.ActorID  `json:"id"`
	Kind   string        `json:"kind"`
	Zone   core.ZoneName `json:"zone"`
	Handle core.Handle   `json:"handle"`
}

// DespawnFrame retires an entity.
type DespawnFrame struct {
	Type string       `json:"type"`
	ID   core.ActorID `json:"id"`
}

// MoveFrame relocates an entity, usually after a zone change.
type MoveFrame struct {
	Type   string        `json:"type"`
	ID     core.ActorID  `json:"id"`
	Zone   core.ZoneName `json:"zone"`
	Handle core.Handle   `json:"handle"`
}

// ZoneFrame reports a world load or unload.
type ZoneFrame struct {
	Type   string        `json:"type"`
	Zone   core.ZoneName `json:"zone"`
	Loaded bool          `json:"loaded"`
}

// InteractFrame is a decoded interaction packet.
type InteractFrame struct {
	Type    string        `json:"type"`
	Subject core.ActorID  `json:"subject"`
	Zone    core.ZoneName `json:"zone"`
	Kind    string        `json:"kind"`
	Action  string        `json:"action"`
	Target  core.Handle   `json:"target"`
}

// DamageFrame is an "entity damaged by entity" notification.
type DamageFrame struct {
	Type         string        `json:"type"`
	Attacker     core.ActorID  `json:"attacker"`
	AttackerKind string        `json:"attacker_kind"`
	Target       core.ActorID  `json:"target"`
	TargetKind   string        `json:"target_kind"`
	Zone         core.ZoneName `json:"zone"`
	Cause        string        `json:"cause,omitempty"`
}

// CommandFrame carries an administrative command line.
type CommandFrame struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Sender string `json:"sender"`
	Line   string `json:"line"`
}

// MessageFrame delivers a notification to one player.
type MessageFrame struct {
	Type string       `json:"type"`
	To   core.ActorID `json:"to"`
	Text string       `json:"text"`
}

// CommandResultFrame answers a CommandFrame.
type CommandResultFrame struct {
	Type  string   `json:"type"`
	Seq   uint64   `json:"seq"`
	Lines []string `json:"lines"`
	Error string   `json:"error,omitempty"`
}

// ErrorFrame reports a rejected frame.
type ErrorFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Event converts the frame into a core interaction event.
func (f InteractFrame) Event() core.InteractionEvent {
	return core.InteractionEvent{
		Kind:    core.InteractionKind(f.Kind),
		Action:  core.InteractionAction(f.Action),
		Subject: f.Subject,
		Target:  f.Target,
		Zone:    f.Zone,
	}
}

// Event converts the frame into a core damage event.
func (f DamageFrame) Event() core.DamageEvent {
	return core.DamageEvent{
		Attacker:   core.Actor{Kind: core.ParseActorKind(f.AttackerKind), ID: f.Attacker},
		Target:     core.Actor{Kind: core.ParseActorKind(f.TargetKind), ID: f.Target},
		TargetZone: f.Zone,
		Cause:      f.Cause,
	}
}
