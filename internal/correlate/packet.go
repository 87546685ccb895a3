// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/marker"
	"github.com/holomush/hitreg/internal/world"
)

// Disposition describes what the packet observer did with an interaction.
type Disposition uint8

const (
	// Queued means the interaction passed every filter and was handed to a
	// resolution worker. The mark becomes visible once the worker finishes.
	Queued Disposition = iota
	IgnoredDisabled
	IgnoredKind
	IgnoredZone
	// Dropped means the resolution queue was full or the observer closed.
	Dropped
)

func (d Disposition) String() string {
	switch d {
	case Queued:
		return "queued"
	case IgnoredDisabled:
		return ResultIgnoredDisabled
	case IgnoredKind:
		return ResultIgnoredKind
	case IgnoredZone:
		return ResultIgnoredZone
	case Dropped:
		return ResultDropped
	default:
		return "unknown"
	}
}

// Default packet observer sizing.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
)

// ResolvedFunc is called by a worker after each resolution attempt.
type ResolvedFunc func(ev core.InteractionEvent, target world.Entity, found bool)

// PacketObserver turns attack interactions into marks. Resolution runs on a
// fixed worker pool so Observe never blocks protocol delivery.
type PacketObserver struct {
	gate     *gate.Gate
	marks    *marker.Set
	scanner  world.Scanner
	resolved ResolvedFunc

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan core.InteractionEvent
	wg     sync.WaitGroup
}

// PacketOption configures a PacketObserver during construction.
type PacketOption func(*packetConfig)

type packetConfig struct {
	workers   int
	queueSize int
	resolved  ResolvedFunc
}

// WithWorkers sets the number of resolution workers. Values below 1 are
// ignored.
func WithWorkers(n int) PacketOption {
	return func(c *packetConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets the resolution queue capacity. Values below 1 are
// ignored.
func WithQueueSize(n int) PacketOption {
	return func(c *packetConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithResolved installs a callback invoked after every resolution attempt.
func WithResolved(fn ResolvedFunc) PacketOption {
	return func(c *packetConfig) {
		c.resolved = fn
	}
}

// NewPacketObserver creates a packet observer and starts its workers.
// Call Close to stop them.
func NewPacketObserver(g *gate.Gate, marks *marker.Set, scanner world.Scanner, opts ...PacketOption) *PacketObserver {
	cfg := packetConfig{workers: DefaultWorkers, queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &PacketObserver{
		gate:     g,
		marks:    marks,
		scanner:  scanner,
		resolved: cfg.resolved,
		queue:    make(chan core.InteractionEvent, cfg.queueSize),
	}
	o.wg.Add(cfg.workers)
	for range cfg.workers {
		go o.work()
	}
	return o
}

// Observe filters ev and, if it is an attack in an active zone, queues it
// for resolution. Filters run in order: gate enabled, attack interaction,
// subject zone active.
func (o *PacketObserver) Observe(ctx context.Context, ev core.InteractionEvent) Disposition {
	d := o.observe(ev)
	if d != Queued {
		recordInteraction(d.String())
		slog.DebugContext(ctx, "interaction not queued",
			"disposition", d.String(),
			"subject", ev.Subject.String(),
			"zone", string(ev.Zone),
		)
	}
	return d
}

func (o *PacketObserver) observe(ev core.InteractionEvent) Disposition {
	if !o.gate.Enabled() {
		return IgnoredDisabled
	}
	if !ev.IsAttack() {
		return IgnoredKind
	}
	if !o.gate.HasZone(ev.Zone) {
		return IgnoredZone
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return Dropped
	}
	select {
	case o.queue <- ev:
		return Queued
	default:
		return Dropped
	}
}

func (o *PacketObserver) work() {
	defer o.wg.Done()
	for ev := range o.queue {
		o.resolve(ev)
	}
}

func (o *PacketObserver) resolve(ev core.InteractionEvent) {
	start := time.Now()
	target, found := world.Resolve(o.scanner, ev.Zone, ev.Target)
	recordResolution(time.Since(start))

	if found {
		o.marks.Mark(target.ID)
		recordInteraction(ResultMarked)
	} else {
		recordInteraction(ResultMiss)
	}

	if o.resolved != nil {
		o.resolved(ev, target, found)
	}
}

// Close stops accepting interactions and waits for queued resolutions to
// finish. Safe to call more than once.
func (o *PacketObserver) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	o.wg.Wait()
}
