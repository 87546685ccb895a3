// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package core contains the value types shared by the hit correlation engine
// and its collaborators.
package core

import "strings"

// ZoneName names a simulation partition (a world). Zones are compared by
// exact string equality.
type ZoneName string

// Handle is a transient numeric entity reference. It is only meaningful
// within the zone snapshot that produced it.
type Handle int32

// ActorKind identifies what type of participant an actor is.
type ActorKind uint8

const (
	ActorUnknown ActorKind = iota
	ActorPlayer
	ActorMob
	ActorProjectile
	ActorEnvironment
)

func (a ActorKind) String() string {
	switch a {
	case ActorPlayer:
		return "player"
	case ActorMob:
		return "mob"
	case ActorProjectile:
		return "projectile"
	case ActorEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// ParseActorKind maps a wire name to an ActorKind. Unrecognized names map to
// ActorUnknown.
func ParseActorKind(s string) ActorKind {
	switch strings.ToLower(s) {
	case "player":
		return ActorPlayer
	case "mob":
		return ActorMob
	case "projectile":
		return ActorProjectile
	case "environment":
		return ActorEnvironment
	default:
		return ActorUnknown
	}
}

// CanAttack reports whether actors of this kind produce melee attack packets.
func (a ActorKind) CanAttack() bool {
	return a == ActorPlayer
}

// Actor is a participant in a damage notification.
type Actor struct {
	Kind ActorKind
	ID   ActorID
}

// InteractionKind is the protocol-level packet category.
type InteractionKind string

const (
	InteractEntity InteractionKind = "interact_entity"
	InteractBlock  InteractionKind = "interact_block"
	InteractItem   InteractionKind = "use_item"
)

// InteractionAction is the sub-kind of an entity interaction.
type InteractionAction string

const (
	ActionAttack     InteractionAction = "attack"
	ActionInteract   InteractionAction = "interact"
	ActionInteractAt InteractionAction = "interact_at"
)

// InteractionEvent is a raw interaction notification from the packet layer.
// Target is a transient handle scoped to Zone's current snapshot.
type InteractionEvent struct {
	Kind    InteractionKind
	Action  InteractionAction
	Subject ActorID
	Target  Handle
	Zone    ZoneName
}

// IsAttack reports whether the event is an entity attack interaction.
func (e InteractionEvent) IsAttack() bool {
	return e.Kind == InteractEntity && e.Action == ActionAttack
}

// DamageEvent is a high-level "entity damaged by entity" notification.
// Both actors carry stable identities.
type DamageEvent struct {
	Attacker   Actor
	Target     Actor
	TargetZone ZoneName
	Cause      string

	// Cancelled is set by listeners that veto the damage. It does not stop
	// correlation.
	Cancelled bool
}

// Outcome is the result of correlating a damage notification.
type Outcome uint8

const (
	OutcomeNormal Outcome = iota
	OutcomePacketVerified
)

func (o Outcome) String() string {
	switch o {
	case OutcomePacketVerified:
		return "PACKET_VERIFIED"
	default:
		return "NORMAL"
	}
}
