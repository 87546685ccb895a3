// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"context"
	"sync/atomic"

	"github.com/holomush/hitreg/internal/access"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/marker"
)

// DamageObserver consumes marks when damage lands. It is the only code path
// that removes a mark, and it must run on the serial damage loop.
type DamageObserver struct {
	gate     *gate.Gate
	marks    *marker.Set
	access   access.AccessControl
	debug    *atomic.Bool
	reporter Reporter
}

// NewDamageObserver creates a damage observer. debug is read on every
// notification; a nil reporter discards reports.
func NewDamageObserver(g *gate.Gate, marks *marker.Set, ac access.AccessControl, debug *atomic.Bool, reporter Reporter) *DamageObserver {
	if reporter == nil {
		reporter = ReporterFunc(func(context.Context, Report) {})
	}
	if debug == nil {
		debug = new(atomic.Bool)
	}
	return &DamageObserver{
		gate:     g,
		marks:    marks,
		access:   ac,
		debug:    debug,
		reporter: reporter,
	}
}

// OnDamage correlates ev. It returns the outcome and true when the
// notification was correlated, or false when it was ignored (non-attacking
// source, or gate inactive for the target's zone). The gate is read fresh on
// every call.
func (o *DamageObserver) OnDamage(ctx context.Context, ev *core.DamageEvent) (core.Outcome, bool) {
	if !ev.Attacker.Kind.CanAttack() {
		return core.OutcomeNormal, false
	}
	if !o.gate.IsActive(ev.TargetZone) {
		return core.OutcomeNormal, false
	}

	outcome := core.OutcomeNormal
	if o.marks.TestAndClear(ev.Target.ID) {
		outcome = core.OutcomePacketVerified
	}
	recordOutcome(outcome.String())

	o.reporter.Report(ctx, Report{
		Attacker:     ev.Attacker,
		Target:       ev.Target,
		Zone:         ev.TargetZone,
		Outcome:      outcome,
		DebugEnabled: o.debug.Load(),
		Authorized:   o.authorized(ctx, ev.Attacker.ID),
	})
	return outcome, true
}

func (o *DamageObserver) authorized(ctx context.Context, id core.ActorID) bool {
	if o.access == nil {
		return false
	}
	return o.access.Check(ctx, access.PlayerSubject(id), access.ActionReceive, access.ResourceNotify)
}
