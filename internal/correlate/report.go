// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"context"
	"log/slog"

	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/pkg/errutil"
)

// Report is the result of correlating one damage notification.
type Report struct {
	Attacker core.Actor
	Target   core.Actor
	Zone     core.ZoneName
	Outcome  core.Outcome

	// DebugEnabled mirrors the engine's debug flag at report time.
	DebugEnabled bool
	// Authorized is true when the attacker may receive notifications.
	Authorized bool
}

// Reporter receives correlation outcomes. Implementations run on the damage
// loop and must not block.
type Reporter interface {
	Report(ctx context.Context, r Report)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r Report)

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, r Report) {
	f(ctx, r)
}

// MultiReporter fans a report out to every reporter in order.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ctx context.Context, r Report) {
	for _, rep := range m {
		rep.Report(ctx, r)
	}
}

// MessageSink delivers text to an actor.
type MessageSink interface {
	SendMessage(ctx context.Context, to core.ActorID, text string) error
}

// Notification texts sent to attackers.
const (
	notifyPrefix          = "[HitReg] "
	MessagePacketVerified = notifyPrefix + "Hit registered via packet!"
	MessageNormal         = notifyPrefix + "Normal hit registered."
)

// RenderOutcome returns the notification text for an outcome.
func RenderOutcome(o core.Outcome) string {
	if o == core.OutcomePacketVerified {
		return MessagePacketVerified
	}
	return MessageNormal
}

// Notifier renders reports as messages to the attacker, only when debug is
// on and the attacker is authorized.
type Notifier struct {
	sink MessageSink
}

// NewNotifier creates a notifier that writes to sink.
func NewNotifier(sink MessageSink) *Notifier {
	return &Notifier{sink: sink}
}

// Report implements Reporter.
func (n *Notifier) Report(ctx context.Context, r Report) {
	if !r.DebugEnabled || !r.Authorized {
		return
	}
	if err := n.sink.SendMessage(ctx, r.Attacker.ID, RenderOutcome(r.Outcome)); err != nil {
		errutil.LogError(slog.Default(), "failed to deliver hit notification", err)
	}
}
