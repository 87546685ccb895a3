// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/marker"
	"github.com/holomush/hitreg/internal/world"
)

type resolution struct {
	ev     core.InteractionEvent
	target world.Entity
	found  bool
}

func newTestPacketObserver(t *testing.T, g *gate.Gate, marks *marker.Set, scanner world.Scanner, opts ...PacketOption) (*PacketObserver, <-chan resolution) {
	t.Helper()
	resolved := make(chan resolution, 16)
	opts = append(opts, WithResolved(func(ev core.InteractionEvent, target world.Entity, found bool) {
		resolved <- resolution{ev: ev, target: target, found: found}
	}))
	o := NewPacketObserver(g, marks, scanner, opts...)
	t.Cleanup(o.Close)
	return o, resolved
}

func waitResolution(t *testing.T, ch <-chan resolution) resolution {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for resolution")
		return resolution{}
	}
}

func attack(subject core.ActorID, zone core.ZoneName, handle core.Handle) core.InteractionEvent {
	return core.InteractionEvent{
		Kind:    core.InteractEntity,
		Action:  core.ActionAttack,
		Subject: subject,
		Target:  handle,
		Zone:    zone,
	}
}

func TestPacketObserver_MarksResolvedTarget(t *testing.T) {
	reg := world.NewRegistry()
	target := core.NewActorID()
	require.NoError(t, reg.Spawn("arena", world.Entity{ID: target, Kind: core.ActorMob, Handle: 42}))

	marks := marker.New()
	o, resolved := newTestPacketObserver(t, gate.New(true, "arena"), marks, reg)

	d := o.Observe(context.Background(), attack(core.NewActorID(), "arena", 42))
	require.Equal(t, Queued, d)

	r := waitResolution(t, resolved)
	assert.True(t, r.found)
	assert.Equal(t, target, r.target.ID)
	assert.True(t, marks.TestAndClear(target))
}

func TestPacketObserver_ResolutionMissIsSilent(t *testing.T) {
	reg := world.NewRegistry()
	reg.LoadZone("arena")
	marks := marker.New()
	o, resolved := newTestPacketObserver(t, gate.New(true, "arena"), marks, reg)

	require.Equal(t, Queued, o.Observe(context.Background(), attack(core.NewActorID(), "arena", 42)))

	r := waitResolution(t, resolved)
	assert.False(t, r.found)
	assert.Equal(t, 0, marks.Len())
}

func TestPacketObserver_Filters(t *testing.T) {
	reg := world.NewRegistry()
	require.NoError(t, reg.Spawn("arena", world.Entity{ID: core.NewActorID(), Handle: 42}))
	require.NoError(t, reg.Spawn("lobby", world.Entity{ID: core.NewActorID(), Handle: 42}))
	subject := core.NewActorID()

	tests := []struct {
		name    string
		enabled bool
		ev      core.InteractionEvent
		want    Disposition
	}{
		{"disabled gate", false, attack(subject, "arena", 42), IgnoredDisabled},
		{"disabled gate checked before kind", false, core.InteractionEvent{Kind: core.InteractBlock, Zone: "arena"}, IgnoredDisabled},
		{"non attack interact", true, core.InteractionEvent{Kind: core.InteractEntity, Action: core.ActionInteract, Zone: "arena", Target: 42}, IgnoredKind},
		{"interact at", true, core.InteractionEvent{Kind: core.InteractEntity, Action: core.ActionInteractAt, Zone: "arena", Target: 42}, IgnoredKind},
		{"block interaction", true, core.InteractionEvent{Kind: core.InteractBlock, Action: core.ActionAttack, Zone: "arena"}, IgnoredKind},
		{"inactive zone", true, attack(subject, "lobby", 42), IgnoredZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marks := marker.New()
			o, _ := newTestPacketObserver(t, gate.New(tt.enabled, "arena"), marks, reg)

			assert.Equal(t, tt.want, o.Observe(context.Background(), tt.ev))
			o.Close()
			assert.Equal(t, 0, marks.Len())
		})
	}
}

// blockingScanner parks every scan until release is closed.
type blockingScanner struct {
	release chan struct{}
	entered chan struct{}
}

func (b *blockingScanner) Each(_ core.ZoneName, _ func(world.Entity) bool) {
	b.entered <- struct{}{}
	<-b.release
}

func TestPacketObserver_DropsWhenQueueFull(t *testing.T) {
	scanner := &blockingScanner{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := NewPacketObserver(gate.New(true, "arena"), marker.New(), scanner, WithWorkers(1), WithQueueSize(1))
	defer o.Close()
	ctx := context.Background()

	require.Equal(t, Queued, o.Observe(ctx, attack(core.NewActorID(), "arena", 1)))
	<-scanner.entered // worker holds the first event
	require.Equal(t, Queued, o.Observe(ctx, attack(core.NewActorID(), "arena", 2)))

	assert.Equal(t, Dropped, o.Observe(ctx, attack(core.NewActorID(), "arena", 3)))

	close(scanner.release)
}

func TestPacketObserver_ObserveDoesNotBlockOnResolution(t *testing.T) {
	scanner := &blockingScanner{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := NewPacketObserver(gate.New(true, "arena"), marker.New(), scanner, WithWorkers(1))
	defer o.Close()

	done := make(chan Disposition, 1)
	go func() {
		done <- o.Observe(context.Background(), attack(core.NewActorID(), "arena", 1))
	}()

	select {
	case d := <-done:
		assert.Equal(t, Queued, d)
	case <-time.After(time.Second):
		t.Fatal("Observe blocked on resolution")
	}
	close(scanner.release)
}

func TestPacketObserver_CloseDrainsAndStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := world.NewRegistry()
	targets := make([]core.ActorID, 20)
	for i := range targets {
		targets[i] = core.NewActorID()
		require.NoError(t, reg.Spawn("arena", world.Entity{ID: targets[i], Handle: core.Handle(i)}))
	}
	marks := marker.New()
	o := NewPacketObserver(gate.New(true, "arena"), marks, reg, WithWorkers(3))

	for i := range targets {
		o.Observe(context.Background(), attack(core.NewActorID(), "arena", core.Handle(i)))
	}
	o.Close()
	o.Close()

	assert.Equal(t, len(targets), marks.Len(), "queued resolutions complete before Close returns")
	assert.Equal(t, Dropped, o.Observe(context.Background(), attack(core.NewActorID(), "arena", 0)))
}

func TestPacketObserver_ConcurrentObserve(t *testing.T) {
	reg := world.NewRegistry()
	target := core.NewActorID()
	require.NoError(t, reg.Spawn("arena", world.Entity{ID: target, Handle: 5}))
	marks := marker.New()
	o := NewPacketObserver(gate.New(true, "arena"), marks, reg, WithQueueSize(256))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Observe(context.Background(), attack(core.NewActorID(), "arena", 5))
		}()
	}
	wg.Wait()
	o.Close()

	assert.Equal(t, 1, marks.Len(), "many attacks on one target leave a single mark")
}

func TestDisposition_String(t *testing.T) {
	assert.Equal(t, "queued", Queued.String())
	assert.Equal(t, ResultIgnoredDisabled, IgnoredDisabled.String())
	assert.Equal(t, ResultIgnoredKind, IgnoredKind.String())
	assert.Equal(t, ResultIgnoredZone, IgnoredZone.String())
	assert.Equal(t, ResultDropped, Dropped.String())
	assert.Equal(t, "unknown", Disposition(42).String())
}
