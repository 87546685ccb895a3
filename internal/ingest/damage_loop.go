// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/hitreg/internal/core"
)

// DamageHandler consumes damage notifications. It is only ever called from
// the DamageLoop goroutine.
type DamageHandler interface {
	OnDamage(ctx context.Context, ev core.DamageEvent) (core.Outcome, bool)
}

// DefaultDamageQueue is the damage loop buffer size.
const DefaultDamageQueue = 256

// DamageLoop serializes damage notifications from every bridge connection
// onto one goroutine, the primary simulation context.
type DamageLoop struct {
	handler DamageHandler
	events  chan core.DamageEvent
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once
}

// NewDamageLoop starts a loop feeding handler.
func NewDamageLoop(handler DamageHandler, queue int) *DamageLoop {
	if queue < 1 {
		queue = DefaultDamageQueue
	}
	l := &DamageLoop{
		handler: handler,
		events:  make(chan core.DamageEvent, queue),
		done:    make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Submit queues ev, blocking while the queue is full. Damage is never
// dropped; a full queue applies backpressure to the submitting connection.
func (l *DamageLoop) Submit(ctx context.Context, ev core.DamageEvent) error {
	select {
	case <-l.done:
		return oops.Code("DAMAGE_LOOP_STOPPED").Errorf("damage loop is stopped")
	default:
	}
	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return oops.Code("DAMAGE_LOOP_STOPPED").Errorf("damage loop is stopped")
	case <-ctx.Done():
		return oops.Code("DAMAGE_SUBMIT_CANCELLED").Wrap(ctx.Err())
	}
}

// Stop drains queued events and waits for the loop to exit.
func (l *DamageLoop) Stop() {
	l.stop.Do(func() { close(l.done) })
	l.wg.Wait()
}

func (l *DamageLoop) run() {
	defer l.wg.Done()
	ctx := context.Background()
	for {
		select {
		case ev := <-l.events:
			l.handle(ctx, ev)
		case <-l.done:
			for {
				select {
				case ev := <-l.events:
					l.handle(ctx, ev)
				default:
					return
				}
			}
		}
	}
}

func (l *DamageLoop) handle(ctx context.Context, ev core.DamageEvent) {
	outcome, reported := l.handler.OnDamage(ctx, ev)
	if reported {
		slog.DebugContext(ctx, "damage correlated",
			"attacker", ev.Attacker.ID.String(),
			"target", ev.Target.ID.String(),
			"zone", string(ev.TargetZone),
			"outcome", outcome.String())
	}
}
