// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/hitreg/internal/access"
	"github.com/holomush/hitreg/internal/access/accesstest"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/marker"
	"github.com/holomush/hitreg/internal/world"
)

// sentMessage is one notification delivered to an attacker.
type sentMessage struct {
	to   core.ActorID
	text string
}

// capturingSink records notifications. Safe for concurrent use.
type capturingSink struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *capturingSink) SendMessage(_ context.Context, to core.ActorID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, text: text})
	return nil
}

func (s *capturingSink) Sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

var _ = Describe("Hit correlation", func() {
	var (
		ctx      context.Context
		g        *gate.Gate
		marks    *marker.Set
		registry *world.Registry
		sink     *capturingSink
		reports  []correlate.Report
		engine   *correlate.Engine
		attacker core.ActorID
		target   core.ActorID
	)

	attackPacket := func(zone core.ZoneName, handle core.Handle) core.InteractionEvent {
		return core.InteractionEvent{
			Kind:    core.InteractEntity,
			Action:  core.ActionAttack,
			Subject: attacker,
			Target:  handle,
			Zone:    zone,
		}
	}

	damage := func(zone core.ZoneName) core.DamageEvent {
		return core.DamageEvent{
			Attacker:   core.Actor{Kind: core.ActorPlayer, ID: attacker},
			Target:     core.Actor{Kind: core.ActorMob, ID: target},
			TargetZone: zone,
			Cause:      "entity_attack",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		attacker = core.NewActorID()
		target = core.NewActorID()

		g = gate.New(true, "arena")
		marks = marker.New()
		registry = world.NewRegistry()
		Expect(registry.Spawn("arena", world.Entity{ID: attacker, Kind: core.ActorPlayer, Handle: 7})).To(Succeed())
		Expect(registry.Spawn("arena", world.Entity{ID: target, Kind: core.ActorMob, Handle: 42})).To(Succeed())

		ac := accesstest.NewMockAccessControl()
		ac.Grant(access.PlayerSubject(attacker), access.ActionReceive, access.ResourceNotify)

		sink = &capturingSink{}
		reports = nil
		recorder := correlate.ReporterFunc(func(_ context.Context, r correlate.Report) {
			reports = append(reports, r)
		})
		engine = correlate.NewEngine(g, marks, registry, ac,
			correlate.MultiReporter{recorder, correlate.NewNotifier(sink)})
		engine.SetDebug(true)
	})

	AfterEach(func() {
		engine.Close()
		Expect(marks.Len()).To(BeZero())
	})

	Context("scenario A: attack packet precedes damage", func() {
		It("reports PACKET_VERIFIED", func() {
			Expect(engine.OnInteraction(ctx, attackPacket("arena", 42))).To(Equal(correlate.Queued))
			Eventually(engine.PendingMarkCount).Should(Equal(1))

			outcome, ok := engine.OnDamage(ctx, damage("arena"))

			Expect(ok).To(BeTrue())
			Expect(outcome).To(Equal(core.OutcomePacketVerified))
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].Outcome).To(Equal(core.OutcomePacketVerified))
			Expect(sink.Sent()).To(ConsistOf(sentMessage{to: attacker, text: correlate.MessagePacketVerified}))
			Expect(engine.PendingMarkCount()).To(BeZero())
		})

		It("registers only one packet hit for a repeated attack", func() {
			engine.OnInteraction(ctx, attackPacket("arena", 42))
			engine.OnInteraction(ctx, attackPacket("arena", 42))
			Eventually(engine.PendingMarkCount).Should(Equal(1))
			Consistently(engine.PendingMarkCount, "20ms").Should(Equal(1))

			first, _ := engine.OnDamage(ctx, damage("arena"))
			second, _ := engine.OnDamage(ctx, damage("arena"))

			Expect(first).To(Equal(core.OutcomePacketVerified))
			Expect(second).To(Equal(core.OutcomeNormal))
		})
	})

	Context("scenario B: no attack packet", func() {
		It("reports NORMAL", func() {
			outcome, ok := engine.OnDamage(ctx, damage("arena"))

			Expect(ok).To(BeTrue())
			Expect(outcome).To(Equal(core.OutcomeNormal))
			Expect(sink.Sent()).To(ConsistOf(sentMessage{to: attacker, text: correlate.MessageNormal}))
		})
	})

	Context("scenario C: gate disabled", func() {
		BeforeEach(func() {
			engine.SetEnabled(false)
		})

		It("creates no mark and reports nothing", func() {
			Expect(engine.OnInteraction(ctx, attackPacket("arena", 42))).To(Equal(correlate.IgnoredDisabled))

			_, ok := engine.OnDamage(ctx, damage("arena"))

			Expect(ok).To(BeFalse())
			Expect(marks.Len()).To(BeZero())
			Expect(reports).To(BeEmpty())
			Expect(sink.Sent()).To(BeEmpty())
		})
	})

	Context("scenario D: attacker in an inactive zone", func() {
		BeforeEach(func() {
			g.ReplaceZones([]core.ZoneName{"lobby"})
			Expect(registry.Move(attacker, "arena", 7)).To(Succeed())
		})

		It("ignores the interaction at the zone check", func() {
			Expect(engine.OnInteraction(ctx, attackPacket("arena", 42))).To(Equal(correlate.IgnoredZone))
			Consistently(marks.Len, "20ms").Should(BeZero())
		})
	})

	Context("gate disabled between attack and damage", func() {
		It("re-reads the gate at consumption time and leaves the mark", func() {
			engine.OnInteraction(ctx, attackPacket("arena", 42))
			Eventually(engine.PendingMarkCount).Should(Equal(1))

			engine.SetEnabled(false)
			_, ok := engine.OnDamage(ctx, damage("arena"))

			Expect(ok).To(BeFalse())
			Expect(reports).To(BeEmpty())
			Expect(engine.PendingMarkCount()).To(Equal(1), "disabling does not clear pending marks")

			engine.SetEnabled(true)
			outcome, ok := engine.OnDamage(ctx, damage("arena"))
			Expect(ok).To(BeTrue())
			Expect(outcome).To(Equal(core.OutcomePacketVerified))
		})
	})

	Context("target despawned before resolution", func() {
		It("degrades to NORMAL", func() {
			Expect(registry.Despawn(target)).To(BeTrue())
			engine.OnInteraction(ctx, attackPacket("arena", 42))
			Consistently(marks.Len, "20ms").Should(BeZero())

			outcome, _ := engine.OnDamage(ctx, damage("arena"))
			Expect(outcome).To(Equal(core.OutcomeNormal))
		})
	})

	Context("debug off", func() {
		It("still reports but sends no notification", func() {
			engine.SetDebug(false)

			_, ok := engine.OnDamage(ctx, damage("arena"))

			Expect(ok).To(BeTrue())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].DebugEnabled).To(BeFalse())
			Expect(sink.Sent()).To(BeEmpty())
		})
	})
})
